package translate

// dictionary holds common automotive catalog terms. Multi-word keys are
// matched as phrases.
var dictionary = map[string]string{
	"części samochodowe":      "car parts",
	"części karoserii":        "body parts",
	"układ hamulcowy":         "braking system",
	"układ wydechowy":         "exhaust system",
	"układ chłodzenia":        "cooling system",
	"układ kierowniczy":       "steering system",
	"układ paliwowy":          "fuel system",
	"układ zapłonowy":         "ignition system",
	"układ napędowy":          "drivetrain",
	"zawieszenie i układ":     "suspension and system",
	"filtr oleju":             "oil filter",
	"filtr powietrza":         "air filter",
	"filtr paliwa":            "fuel filter",
	"filtr kabinowy":          "cabin filter",
	"klocki hamulcowe":        "brake pads",
	"tarcze hamulcowe":        "brake discs",
	"szczęki hamulcowe":       "brake shoes",
	"pompa wody":              "water pump",
	"pompa paliwa":            "fuel pump",
	"świece zapłonowe":        "spark plugs",
	"pasek rozrządu":          "timing belt",
	"zestaw rozrządu":         "timing kit",
	"amortyzatory i sprężyny": "shock absorbers and springs",
	"wycieraczki i pióra":     "wipers and blades",
	"oleje i płyny":           "oils and fluids",
	"opony i felgi":           "tyres and rims",

	"akumulatory":    "batteries",
	"akumulator":     "battery",
	"alternatory":    "alternators",
	"amortyzator":    "shock absorber",
	"amortyzatory":   "shock absorbers",
	"chłodnica":      "radiator",
	"chłodnice":      "radiators",
	"czujniki":       "sensors",
	"czujnik":        "sensor",
	"drzwi":          "doors",
	"elektryka":      "electrics",
	"felgi":          "rims",
	"filtry":         "filters",
	"filtr":          "filter",
	"hamulce":        "brakes",
	"karoseria":      "bodywork",
	"klimatyzacja":   "air conditioning",
	"lampa":          "lamp",
	"lampy":          "lamps",
	"lusterka":       "mirrors",
	"lusterko":       "mirror",
	"maska":          "bonnet",
	"motoryzacja":    "automotive",
	"oświetlenie":    "lighting",
	"opony":          "tyres",
	"oleje":          "oils",
	"olej":           "oil",
	"paliwo":         "fuel",
	"pasek":          "belt",
	"paski":          "belts",
	"pompy":          "pumps",
	"pompa":          "pump",
	"przedni":        "front",
	"przednie":       "front",
	"reflektory":     "headlights",
	"reflektor":      "headlight",
	"rozrusznik":     "starter",
	"rozruszniki":    "starters",
	"silnik":         "engine",
	"silniki":        "engines",
	"skrzynia":       "gearbox",
	"sprężyny":       "springs",
	"sprzęgło":       "clutch",
	"sprzęgła":       "clutches",
	"szyby":          "windows",
	"tarcze":         "discs",
	"tylne":          "rear",
	"tylny":          "rear",
	"uszczelki":      "gaskets",
	"wycieraczki":    "wipers",
	"wydech":         "exhaust",
	"zawieszenie":    "suspension",
	"zderzak":        "bumper",
	"zderzaki":       "bumpers",
	"zestaw":         "kit",
	"i":              "and",
	"do":             "for",
	"z":              "with",
	"pozostałe":      "other",
	"inne":           "other",
	"akcesoria":      "accessories",
	"narzędzia":      "tools",
	"wnętrze":        "interior",
	"nadwozie":       "body",
	"ogrzewanie":     "heating",
	"wentylacja":     "ventilation",
	"turbosprężarki": "turbochargers",
	"wtryskiwacze":   "injectors",
}
