package wardrobe

import "github.com/your-org/outfit/internal/models"

// palette approximates the base-color names used by the product catalog.
// Mixed values such as "Multi" have no entry.
var palette = map[string]models.Color{
	"Black":              {0, 0, 0},
	"White":              {255, 255, 255},
	"Off White":          {245, 240, 225},
	"Cream":              {255, 253, 208},
	"Beige":              {225, 198, 153},
	"Skin":               {232, 190, 172},
	"Nude":               {227, 188, 154},
	"Peach":              {255, 203, 164},
	"Grey":               {128, 128, 128},
	"Grey Melange":       {160, 160, 160},
	"Charcoal":           {54, 69, 79},
	"Silver":             {192, 192, 192},
	"Steel":              {113, 121, 126},
	"Metallic":           {170, 169, 173},
	"Navy Blue":          {0, 0, 128},
	"Blue":               {0, 90, 200},
	"Turquoise Blue":     {64, 224, 208},
	"Teal":               {0, 128, 128},
	"Green":              {0, 128, 0},
	"Sea Green":          {46, 139, 87},
	"Lime Green":         {50, 205, 50},
	"Fluorescent Green":  {8, 255, 8},
	"Olive":              {128, 128, 0},
	"Khaki":              {195, 176, 145},
	"Yellow":             {255, 220, 0},
	"Mustard":            {225, 173, 1},
	"Gold":               {212, 175, 55},
	"Orange":             {255, 130, 0},
	"Rust":               {183, 65, 14},
	"Copper":             {184, 115, 51},
	"Bronze":             {205, 127, 50},
	"Tan":                {210, 180, 140},
	"Brown":              {120, 72, 40},
	"Coffee Brown":       {111, 78, 55},
	"Mushroom Brown":     {152, 127, 110},
	"Taupe":              {72, 60, 50},
	"Red":                {200, 16, 46},
	"Maroon":             {128, 0, 0},
	"Burgundy":           {128, 0, 32},
	"Pink":               {255, 170, 190},
	"Rose":               {255, 0, 127},
	"Magenta":            {255, 0, 255},
	"Purple":             {110, 40, 140},
	"Lavender":           {200, 170, 230},
	"Mauve":              {224, 176, 255},
}

// PaletteColor returns the approximate RGB value of a catalog color name.
func PaletteColor(name string) (models.Color, bool) {
	c, ok := palette[name]
	return c, ok
}
