package extract

import (
	"testing"

	"autoriven/scraper/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offerURL = "https://allegro.pl/oferta/filtr-oleju-bosch-13579246"

const offerPageHTML = `<html><head>
<meta property="og:title" content="Filtr oleju Bosch F026407157">
<meta itemprop="price" content="129.99">
<meta itemprop="priceCurrency" content="PLN">
<link itemprop="itemCondition" href="https://schema.org/NewCondition">
<meta itemprop="gtin13" content="4047026265123">
<meta itemprop="brand" content="Bosch">
</head><body>
<h1>Filtr oleju Bosch</h1>
<div data-role="gallery">
  <img src="https://a.allegroimg.com/s256/image.jpg">
  <img data-src="https://a.allegroimg.com/s512/image.jpg">
  <img srcset="https://a.allegroimg.com/s128/second.jpg 1x, https://a.allegroimg.com/s256/second.jpg 2x">
  <img src="https://a.allegroimg.com/s64/third.jpg">
  <img src="https://a.allegroimg.com/s64/fourth.jpg">
</div>
<div data-role="parameters"><table>
  <tr><th>Stan</th><td>Nowy</td></tr>
  <tr><th>Producent części</th><td>Bosch</td></tr>
  <tr><th>Numer katalogowy części</th><td>F 026 407 157</td></tr>
  <tr><th>Stan</th><td>Używany</td></tr>
</table></div>
<div data-role="description">
<p>Oryginalny   filtr</p>
<p>do silników 1.6</p>
</div>
<div data-role="seller-info"><a href="/uzytkownik/autoczesci">autoczesci</a><span>99,2% poleca</span></div>
</body></html>`

func TestProductDetails(t *testing.T) {
	doc, err := Parse(offerPageHTML)
	require.NoError(t, err)

	p := ProductDetails(doc, offerURL)

	assert.Equal(t, "13579246", p.NaturalID)
	assert.Equal(t, offerURL, p.SourceURL)
	assert.Equal(t, "Filtr oleju Bosch F026407157", p.Name)
	assert.Equal(t, 129.99, p.Price)
	assert.Equal(t, "PLN", p.Currency)
	assert.Equal(t, domain.ConditionNew, p.Condition)

	assert.Equal(t, []string{
		"https://a.allegroimg.com/original/image.jpg",
		"https://a.allegroimg.com/original/second.jpg",
		"https://a.allegroimg.com/original/third.jpg",
		"https://a.allegroimg.com/original/fourth.jpg",
	}, p.GalleryImages)
	assert.Equal(t, p.GalleryImages[:3], p.Images)

	require.NotNil(t, p.EAN)
	assert.Equal(t, "4047026265123", *p.EAN)
	require.NotNil(t, p.Brand)
	assert.Equal(t, "Bosch", *p.Brand)
	require.NotNil(t, p.Manufacturer)
	assert.Equal(t, "Bosch", *p.Manufacturer)
	require.NotNil(t, p.PartNumber)
	assert.Equal(t, "F 026 407 157", *p.PartNumber)

	assert.Equal(t, "Oryginalny filtr do silników 1.6", p.DescriptionText)
	assert.Contains(t, p.DescriptionHTML, "<p>")

	require.NotNil(t, p.SellerName)
	assert.Equal(t, "autoczesci", *p.SellerName)
	require.NotNil(t, p.SellerRating)
	assert.InDelta(t, 4.96, *p.SellerRating, 0.001)

	value, ok := specValue(p.Specifications, []string{"stan"})
	require.True(t, ok)
	assert.Equal(t, "Nowy", value)
	assert.Len(t, p.Specifications, 3)
}

func TestProductDetails_Sparse(t *testing.T) {
	doc, err := Parse(`<html><body><h1>Lusterko</h1>
		<dl><dt>Stan:</dt><dd>Używany</dd><dt>EAN</dt><dd>5901234123457</dd></dl>
	</body></html>`)
	require.NoError(t, err)

	p := ProductDetails(doc, "https://allegro.pl/oferta/lusterko-42")

	assert.Equal(t, "42", p.NaturalID)
	assert.Equal(t, "Lusterko", p.Name)
	assert.Zero(t, p.Price)
	assert.Equal(t, domain.ConditionUsed, p.Condition)
	require.NotNil(t, p.EAN)
	assert.Equal(t, "5901234123457", *p.EAN)
	assert.Nil(t, p.Brand)
	assert.Nil(t, p.SellerName)
	assert.Nil(t, p.SellerRating)
	assert.Empty(t, p.Images)
}

func TestProductDetails_EANFromImageAlt(t *testing.T) {
	doc, err := Parse(`<html><body><h1>Klocki</h1><img alt="Klocki EAN 4006633123456 przód" src="/x.jpg"></body></html>`)
	require.NoError(t, err)

	p := ProductDetails(doc, "https://allegro.pl/oferta/klocki-7")
	require.NotNil(t, p.EAN)
	assert.Equal(t, "4006633123456", *p.EAN)
}

func TestNormalizeImageURL(t *testing.T) {
	assert.Equal(t, "https://a.allegroimg.com/original/image.jpg", NormalizeImageURL("https://a.allegroimg.com/s256/image.jpg"))
	assert.Equal(t, "https://a.allegroimg.com/original/image.jpg", NormalizeImageURL("https://a.allegroimg.com/original/image.jpg"))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"129.99", 129.99},
		{"129,99 zł", 129.99},
		{"1 299,00 zł", 1299},
		{"1.299,50", 1299.5},
		{"1,299.50", 1299.5},
		{"1.234.567", 1234567},
		{"12,345", 12345},
		{"-5.00", 0},
		{"\u2212129,99 zł", 0},
		{"free", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrice(tt.in))
		})
	}
}

func TestRatingFromPercent(t *testing.T) {
	assert.Equal(t, 5.0, RatingFromPercent(100))
	assert.Equal(t, 0.0, RatingFromPercent(-3))
	assert.Equal(t, 5.0, RatingFromPercent(140))
	assert.Equal(t, 4.5, RatingFromPercent(90))
}
