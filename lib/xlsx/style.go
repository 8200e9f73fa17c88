// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"strings"

	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/protocol"
)

// BorderFromStyle maps an OOXML border style name to the host's
// weight and line style pair. Unknown and "none" styles map to the
// zero Border.
func BorderFromStyle(style string) document.Border {
	switch style {
	case "hair":
		return document.Border{Weight: protocol.WeightHairline, LineStyle: protocol.LineStyleContinuous}
	case "thin":
		return document.Border{Weight: protocol.WeightThin, LineStyle: protocol.LineStyleContinuous}
	case "medium":
		return document.Border{Weight: protocol.WeightMedium, LineStyle: protocol.LineStyleContinuous}
	case "thick":
		return document.Border{Weight: protocol.WeightThick, LineStyle: protocol.LineStyleContinuous}
	case "dashed":
		return document.Border{Weight: protocol.WeightThin, LineStyle: protocol.LineStyleDash}
	case "mediumDashed":
		return document.Border{Weight: protocol.WeightMedium, LineStyle: protocol.LineStyleDash}
	case "dotted":
		return document.Border{Weight: protocol.WeightThin, LineStyle: protocol.LineStyleDot}
	case "double":
		return document.Border{Weight: protocol.WeightThick, LineStyle: protocol.LineStyleDouble}
	case "dashDot":
		return document.Border{Weight: protocol.WeightThin, LineStyle: protocol.LineStyleDashDot}
	case "mediumDashDot":
		return document.Border{Weight: protocol.WeightMedium, LineStyle: protocol.LineStyleDashDot}
	case "dashDotDot":
		return document.Border{Weight: protocol.WeightThin, LineStyle: protocol.LineStyleDashDotDot}
	case "mediumDashDotDot":
		return document.Border{Weight: protocol.WeightMedium, LineStyle: protocol.LineStyleDashDotDot}
	case "slantDashDot":
		return document.Border{Weight: protocol.WeightMedium, LineStyle: protocol.LineStyleSlantDashDot}
	default:
		return document.Border{}
	}
}

// defaultPalette is the 56-entry default color palette; entry i is
// color index i+1.
var defaultPalette = [56]string{
	"000000", "FFFFFF", "FF0000", "00FF00", "0000FF", "FFFF00", "FF00FF", "00FFFF",
	"800000", "008000", "000080", "808000", "800080", "008080", "C0C0C0", "808080",
	"9999FF", "993366", "FFFFCC", "CCFFFF", "660066", "FF8080", "0066CC", "CCCCFF",
	"000080", "FF00FF", "FFFF00", "00FFFF", "800080", "800000", "008080", "0000FF",
	"00CCFF", "CCFFFF", "CCFFCC", "FFFF99", "99CCFF", "FF99CC", "CC99FF", "FFCC99",
	"3366FF", "33CCCC", "99CC00", "FFCC00", "FF9900", "FF6600", "666699", "969696",
	"003366", "339966", "003300", "333300", "993300", "993366", "333399", "333333",
}

// paletteFromIndexed converts an OOXML indexed color to a palette
// index. Indexed colors 8 through 63 are palette entries 1 through 56;
// the rest are legacy or system colors.
func paletteFromIndexed(indexed uint32) uint8 {
	if indexed < 8 || indexed > 63 {
		return 0
	}
	return uint8(indexed - 7)
}

// paletteFromRGB returns the first palette entry equal to an ARGB or
// RGB hex string, or 0.
func paletteFromRGB(hex string) uint8 {
	hex = strings.ToUpper(strings.TrimPrefix(hex, "#"))
	if len(hex) == 8 {
		hex = hex[2:]
	}
	for i, entry := range defaultPalette {
		if entry == hex {
			return uint8(i + 1)
		}
	}
	return 0
}
