package simulation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// championFile is the on-disk form of a Champion.
type championFile struct {
	Generation int     `json:"generation"`
	RunID      string  `json:"runId"`
	Fitness    float64 `json:"fitness"`
	DNA        DNA     `json:"dna"`
}

// SaveChampion writes the champion's genes and score as JSON.
func SaveChampion(champion Champion, path string) error {
	data, err := json.MarshalIndent(championFile{
		Generation: champion.Generation,
		RunID:      champion.Result.RunID,
		Fitness:    champion.Result.Fitness,
		DNA:        champion.DNA,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal champion: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write champion file: %w", err)
	}
	return nil
}

// LoadDNA reads the genes from a file written by SaveChampion.
func LoadDNA(path string) (DNA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read champion file: %w", err)
	}

	var f championFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse champion file: %w", err)
	}
	if len(f.DNA) == 0 {
		return nil, fmt.Errorf("champion file %s has no dna", path)
	}
	return f.DNA, nil
}

// ParseDNA parses a comma separated gene list such as "0.5, 0.25,1".
func ParseDNA(s string) (DNA, error) {
	fields := strings.Split(s, ",")
	dna := make(DNA, 0, len(fields))
	for i, field := range fields {
		gene, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("gene %d: %w", i, err)
		}
		if math.IsNaN(gene) || math.IsInf(gene, 0) {
			return nil, fmt.Errorf("gene %d is not finite", i)
		}
		dna = append(dna, gene)
	}
	return dna, nil
}
