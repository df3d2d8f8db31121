// Package report renders a matching run into an HTML report and delivers it
// by mail. Geocoding and delivery failures are warnings: they never
// invalidate the ranking and explanation already produced.
package report

import (
	"context"
	_ "embed"
	"html/template"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/medmatch/medmatch/pkg/adapter"
	"github.com/medmatch/medmatch/pkg/model"
	"github.com/medmatch/medmatch/pkg/utils/logging"
)

//go:embed template/report.html
var reportTemplateRaw string

var reportTmpl = template.Must(template.New("report").Parse(reportTemplateRaw))

const mailSubject = "Your Clinical Trial Matches Report"

// Reporter builds and dispatches trial-match reports
type Reporter struct {
	geocoder adapter.Geocoder
	mailer   adapter.Mailer
}

// New creates a reporter. The geocoder may be nil; the report then simply
// omits the map.
func New(geocoder adapter.Geocoder, mailer adapter.Mailer) (*Reporter, error) {
	if mailer == nil {
		return nil, goerr.New("mailer is required")
	}
	return &Reporter{
		geocoder: geocoder,
		mailer:   mailer,
	}, nil
}

// Send renders the result and mails it to the recipient
func (r *Reporter) Send(ctx context.Context, result *model.MatchResult, to string) error {
	body, err := Render(result, r.mapURL(ctx, result))
	if err != nil {
		return err
	}

	if err := r.mailer.Send(ctx, &adapter.Mail{
		To:       to,
		Subject:  mailSubject,
		HTMLBody: body,
	}); err != nil {
		return goerr.Wrap(err, "failed to deliver report", goerr.V("to", to))
	}

	return nil
}

// mapURL geocodes the top trial's first location. Any failure degrades to an
// empty URL with a warning.
func (r *Reporter) mapURL(ctx context.Context, result *model.MatchResult) string {
	logger := logging.From(ctx)

	if r.geocoder == nil || len(result.Trials) == 0 {
		return ""
	}
	location := result.Trials[0].FirstLocation()
	if location == "" {
		logger.Warn("top trial has no location data", "nct_number", result.Trials[0].ID)
		return ""
	}

	lat, lon, err := r.geocoder.Geocode(ctx, location)
	if err != nil {
		logger.Warn("failed to geocode trial location", "location", location, "error", err)
		return ""
	}

	return adapter.StaticMapURL(lat, lon)
}

type renderData struct {
	FreeText        string
	AgeGroup        model.AgeGroup
	Sex             model.Sex
	RankingHTML     template.HTML
	ExplanationHTML template.HTML
	MapURL          string
	Trials          []*model.Trial
}

// Render produces the HTML report body
func Render(result *model.MatchResult, mapURL string) (string, error) {
	var buf strings.Builder
	err := reportTmpl.Execute(&buf, renderData{
		FreeText:        result.Query.FreeText,
		AgeGroup:        result.Query.AgeGroup,
		Sex:             result.Query.Sex,
		RankingHTML:     markdownLite(result.Ranking),
		ExplanationHTML: markdownLite(result.Explanation),
		MapURL:          mapURL,
		Trials:          result.Trials,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to render report")
	}

	return buf.String(), nil
}

var (
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	listItemPattern = regexp.MustCompile(`(?m)^[-*]\s+(.*)$`)
)

// markdownLite converts the bold and list markers the model tends to emit
// into HTML. Input is escaped first; the output is safe to inline.
func markdownLite(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	converted := boldPattern.ReplaceAllString(escaped, "<b>$1</b>")
	converted = listItemPattern.ReplaceAllString(converted, "<li>$1</li>")
	converted = strings.ReplaceAll(converted, "\n", "<br>")
	return template.HTML(converted)
}
