package feed

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/couchcryptid/avyrss/internal/domain"
)

const (
	sectionHeading = "font-size: 18px; font-weight: bold; margin: 0 0 15px 0; text-transform: uppercase;"
	headerCell     = "padding: 8px; border: 1px solid #ddd; background-color: #e0e0e0; text-align: left;"
	ratingCell     = "padding: 12px; border: 1px solid #ddd; background-color: #f5f5f5;"
)

var elevationBands = []struct {
	label string
	level func(domain.DangerRating) *int
}{
	{"Above Treeline", func(d domain.DangerRating) *int { return d.Upper }},
	{"Treeline", func(d domain.DangerRating) *int { return d.Middle }},
	{"Below Treeline", func(d domain.DangerRating) *int { return d.Lower }},
}

// DescriptionHTML renders the body shared by feed entries and preview pages.
// Sections appear in a fixed order and are left out when their data is absent:
// forecaster, bottom line, danger table, problems, discussion, link to the
// full forecast. Bottom line and discussion are provider HTML and are
// inserted as-is; every other string is escaped.
func (b *Builder) DescriptionHTML(s domain.ForecastSummary) string {
	var parts []string

	if s.Author != nil {
		parts = append(parts, fmt.Sprintf(
			"<p style='margin: 0 0 20px 0; color: #666; font-size: 14px;'><strong>Forecaster:</strong> %s</p>",
			html.EscapeString(*s.Author)))
	}

	if s.BottomLine != "" {
		parts = append(parts,
			"<div style='margin: 20px 0; padding: 15px; background-color: #f5f5f5; border: 2px solid #999; border-radius: 4px;'>"+
				"<p style='font-size: 18px; font-weight: bold; margin: 0 0 10px 0; text-transform: uppercase;'>"+
				b.dangerIcon(s.OverallDanger, 30, "margin-right: 10px;")+"The Bottom Line</p>"+
				"<div style='line-height: 1.6;'>"+s.BottomLine+"</div></div>")
	}

	if s.DangerCurrent != nil {
		parts = append(parts, b.dangerTable(*s.DangerCurrent, s.DangerTomorrow))
	}

	if len(s.Problems) > 0 {
		parts = append(parts, problemsSection(s.Problems))
	}

	if s.ForecastDiscussion != nil {
		parts = append(parts,
			"<div style='margin: 20px 0;'><p style='"+sectionHeading+"'>Forecast Discussion</p>"+
				"<div style='line-height: 1.6;'>"+*s.ForecastDiscussion+"</div></div>")
	}

	if s.URL != nil {
		parts = append(parts, fmt.Sprintf(
			"<p style='margin-top: 25px; padding: 12px; background-color: #e3f2fd; border-radius: 4px; text-align: center;'>"+
				"<a href='%s' style='color: #1976d2; text-decoration: none; font-weight: bold; font-size: 16px;'>"+
				"&rarr; View Full Forecast on Avalanche Center Website</a></p>",
			html.EscapeString(*s.URL)))
	}

	return strings.Join(parts, "\n")
}

// dangerIcon returns an <img> for a rated level, or nothing for an unrated one.
func (b *Builder) dangerIcon(level *int, height int, margin string) string {
	if !domain.IsRated(level) {
		return ""
	}
	return fmt.Sprintf("<img src='%s/%d.png' alt='%s' height='%d' style='vertical-align: middle; %s' />",
		html.EscapeString(b.iconBaseURL), *level, domain.DangerLabel(level), height, margin)
}

func (b *Builder) dangerTable(today domain.DangerRating, tomorrow *domain.DangerRating) string {
	var sb strings.Builder
	sb.WriteString("<div style='margin: 20px 0;'><p style='" + sectionHeading + "'>Avalanche Danger</p>")
	sb.WriteString("<table style='border-collapse: separate; border-spacing: 0; width: 100%; max-width: 700px; margin-bottom: 20px;'>")

	sb.WriteString("<tr><th style='" + headerCell + " width: 15%;'></th>")
	sb.WriteString("<th style='" + headerCell + " width: 60%;'>Today</th>")
	if tomorrow != nil {
		sb.WriteString("<th style='" + headerCell + " width: 25%;'>Tomorrow</th>")
	}
	sb.WriteString("</tr>")

	for _, band := range elevationBands {
		level := band.level(today)
		fmt.Fprintf(&sb,
			"<tr><td style='padding: 12px; background-color: %s; font-weight: bold; border: 1px solid #ddd;'>%s</td>",
			domain.DangerColor(level), band.label)
		sb.WriteString(b.ratingCell(level))
		if tomorrow != nil {
			sb.WriteString(b.ratingCell(band.level(*tomorrow)))
		}
		sb.WriteString("</tr>")
	}

	sb.WriteString("</table></div>")
	return sb.String()
}

func (b *Builder) ratingCell(level *int) string {
	return "<td style='" + ratingCell + "'>" +
		b.dangerIcon(level, 25, "margin-right: 8px;") +
		"<strong style='font-size: 16px;'>" + domain.DangerLabel(level) + "</strong></td>"
}

func problemsSection(problems []domain.Problem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<div style='margin: 20px 0;'><p style='%s'>Avalanche Problems (%d)</p>", sectionHeading, len(problems))
	for i, p := range problems {
		fmt.Fprintf(&sb,
			"<div style='margin: 15px 0; padding: 15px; background-color: #f9f9f9; border-left: 4px solid #333;'>"+
				"<p style='margin: 0 0 8px 0; font-weight: bold; font-size: 16px; text-transform: uppercase;'>Problem #%d: %s</p>"+
				"<p style='margin: 0; font-style: italic; color: #555;'>Likelihood: <strong>%s</strong> | Size: <strong>%s</strong></p>"+
				"</div>",
			i+1, html.EscapeString(p.Name), html.EscapeString(capitalize(p.Likelihood)), p.SizeText())
	}
	sb.WriteString("</div>")
	return sb.String()
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
