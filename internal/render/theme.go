package render

// Theme holds report colors.
type Theme struct {
	Background string
	TextColor  string
	Link       string

	// Bar colors by record kind.
	KindName     string
	KindMessage  string
	KindInternal string
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	TextColor:  "#1A1A1A",
	Link:       "#0B3D91",

	KindName:     "#00695C", // teal
	KindMessage:  "#0B3D91", // NASA blue
	KindInternal: "#9E9E9E", // gray
}
