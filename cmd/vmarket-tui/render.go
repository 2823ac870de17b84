// ABOUTME: Terminal rendering for conversation entries, listings, and comparisons.
// ABOUTME: Pure presentation; reads session snapshots, never mutates state.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/nimesha-dev/vmarket/internal/protocol"
	"github.com/nimesha-dev/vmarket/internal/session"
)

var (
	agentLabel = color.New(color.FgGreen, color.Bold)
	errorText  = color.New(color.FgRed)
	dimText    = color.New(color.Faint)
	titleText  = color.New(color.Bold)
	stateText  = color.New(color.FgYellow)
)

// renderMessage prints one assistant entry with its listings and comparison.
func renderMessage(m session.Message) {
	if m.IsError {
		errorText.Printf("agent> %s\n", m.Content)
		return
	}

	agentLabel.Print("agent> ")
	fmt.Println(m.Content)

	if len(m.Vehicles) > 0 {
		fmt.Println()
		renderVehicles(m.Vehicles)
	}
	if len(m.Comparison) > 0 {
		fmt.Println()
		renderComparison(m.Comparison)
	}
}

func renderVehicles(vehicles []protocol.VehicleListing) {
	for i, v := range vehicles {
		titleText.Printf("  %d. %s\n", i+1, v.Title)
		fmt.Printf("     Price: %s\n", formatLKR(v.Price))
		if v.Year > 0 {
			fmt.Printf("     Year: %d\n", v.Year)
		}
		if v.Mileage != "" && v.Mileage != "N/A" {
			fmt.Printf("     Mileage: %s\n", v.Mileage)
		}
		if v.Location != "" && v.Location != "N/A" {
			fmt.Printf("     Location: %s\n", v.Location)
		}
		dimText.Printf("     Source: %s", v.Source)
		if v.URL != "" {
			dimText.Printf("  %s", v.URL)
		}
		fmt.Println()
	}
}

func renderComparison(summary map[string]protocol.ModelStats) {
	// Stable output order for a map.
	models := make([]string, 0, len(summary))
	for model := range summary {
		models = append(models, model)
	}
	sort.Strings(models)

	for _, model := range models {
		stats := summary[model]
		titleText.Printf("  %s\n", model)
		fmt.Printf("     Listings found: %d\n", stats.Count)
		fmt.Printf("     Average price: %s\n", formatLKR(stats.AvgPrice))
		fmt.Printf("     Price range: %s - %s\n", formatLKR(stats.MinPrice), formatLKR(stats.MaxPrice))
		if len(stats.Sources) > 0 {
			dimText.Printf("     Sources: %s\n", strings.Join(stats.Sources, ", "))
		}
	}
}

func renderConnState(s session.ConnState) {
	stateText.Printf("[%s]\n", s)
}

// formatLKR renders a rupee amount with thousands separators, e.g.
// "Rs 4,500,000". Listing prices are non-negative; anything below zero
// clamps to zero rather than rendering a sign.
func formatLKR(amount float64) string {
	n := int64(amount + 0.5)
	if n < 0 {
		n = 0
	}

	digits := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return "Rs " + b.String()
}
