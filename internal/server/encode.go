package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/atlas"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("response write failed", zap.Error(err))
	}
}

// callbackRe keeps JSONP callbacks to plain identifier-ish names so the
// response cannot be used to inject script.
var callbackRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

func writeJSONP(w http.ResponseWriter, callback string, result *atlas.SearchResult) {
	if !callbackRe.MatchString(callback) {
		http.Error(w, "invalid callback", http.StatusBadRequest)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/javascript")
	if _, err := fmt.Fprintf(w, "%s(%s);", callback, body); err != nil {
		zap.L().Warn("response write failed", zap.Error(err))
	}
}

// writePlainText renders the result for terminals and legacy clients:
// a header line, one line per match, then any advisory lines.
func writePlainText(w http.ResponseWriter, result *atlas.SearchResult) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	var b strings.Builder
	switch n := result.Count(); n {
	case 1:
		fmt.Fprintf(&b, "%s: 1 match\n", result.NormalizedSearch)
	default:
		fmt.Fprintf(&b, "%s: %d matches\n", result.NormalizedSearch, n)
	}

	for _, loc := range result.Matches {
		fmt.Fprintf(&b, "%s [%.4f, %.4f]", loc.DisplayName(), loc.Latitude, loc.Longitude)
		if loc.Zone != "" {
			b.WriteString(" " + loc.Zone)
		}
		fmt.Fprintf(&b, " (rank %d)\n", loc.Rank)
	}

	for _, line := range advisoryLines(result) {
		b.WriteString(line + "\n")
	}

	if _, err := fmt.Fprint(w, b.String()); err != nil {
		zap.L().Warn("response write failed", zap.Error(err))
	}
}

func advisoryLines(result *atlas.SearchResult) []string {
	var lines []string
	if result.Error != "" {
		lines = append(lines, "error: "+result.Error)
	}
	for _, l := range splitLines(result.Warning) {
		lines = append(lines, "warning: "+l)
	}
	for _, l := range splitLines(result.Info) {
		lines = append(lines, "info: "+l)
	}
	return lines
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
