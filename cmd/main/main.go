// Command scraper crawls the marketplace's category tree and scrapes the
// offers of its leaf categories.
//
// Usage:
//
//	scraper categories
//	scraper products --from exports/categories_20260101_120000.json
//	scraper retry
package main

func main() {
	Execute()
}
