package extract

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// ErrEmptyClaim is returned for claims that are blank after normalization
var ErrEmptyClaim = errors.New("claim is empty")

// NormalizeClaim collapses internal whitespace and trims the claim text
func NormalizeClaim(text string) (string, error) {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return "", ErrEmptyClaim
	}
	return normalized, nil
}

// datasetLine is one JSONL record of a claim dataset
type datasetLine struct {
	Claim string          `json:"claim"`
	Label json.RawMessage `json:"label"`
}

// LoadClaims reads claims from a dataset file
func LoadClaims(path string) ([]model.Claim, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadClaims(file)
}

// ReadClaims parses a claim dataset. Each line is either a JSON object with
// "claim" and optional "label" fields, or the claim as plain text. Blank
// lines and lines starting with # are skipped.
func ReadClaims(r io.Reader) ([]model.Claim, error) {
	var claims []model.Claim

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		claim := model.Claim{Line: lineNo}
		if strings.HasPrefix(line, "{") {
			var rec datasetLine
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return nil, fmt.Errorf("line %d: decode claim record: %w", lineNo, err)
			}
			claim.Text = rec.Claim
			claim.Label = parseLabel(rec.Label)
		} else {
			claim.Text = line
		}

		text, err := NormalizeClaim(claim.Text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		claim.Text = text
		claims = append(claims, claim)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}

	return claims, nil
}

// parseLabel accepts string or boolean labels
func parseLabel(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return string(model.AnswerTrue)
		}
		return string(model.AnswerFalse)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if answer, ok := model.ParseAnswer(s); ok {
			return string(answer)
		}
		return strings.TrimSpace(s)
	}
	return ""
}
