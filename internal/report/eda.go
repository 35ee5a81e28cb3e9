// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/recomart/recomart/internal/models"
)

const (
	chartWidth  = 1000
	chartHeight = 500
	chartMargin = 60.0
)

// PopularityHistogram renders the long-tail distribution of interactions per
// product as a PNG bar chart: x is the interaction count per product, y is
// how many products received that many interactions.
func PopularityHistogram(records []models.PreparedRecord, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}

	perProduct := make(map[int]int)
	for _, r := range records {
		perProduct[r.ProductID]++
	}

	maxCount := 0
	for _, c := range perProduct {
		if c > maxCount {
			maxCount = c
		}
	}

	// One bar per interaction count, capped at 50 bins for readability.
	bins := maxCount
	if bins > 50 {
		bins = 50
	}
	if bins == 0 {
		bins = 1
	}
	histogram := make([]int, bins)
	for _, c := range perProduct {
		bin := int(float64(c-1) / float64(maxCount) * float64(bins))
		if bin >= bins {
			bin = bins - 1
		}
		if bin < 0 {
			bin = 0
		}
		histogram[bin]++
	}

	tallest := 0
	for _, h := range histogram {
		if h > tallest {
			tallest = h
		}
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW := float64(chartWidth) - 2*chartMargin
	plotH := float64(chartHeight) - 2*chartMargin

	// Axes
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(1.5)
	dc.DrawLine(chartMargin, chartMargin, chartMargin, chartMargin+plotH)
	dc.DrawLine(chartMargin, chartMargin+plotH, chartMargin+plotW, chartMargin+plotH)
	dc.Stroke()

	// Bars
	dc.SetRGB(0.0, 0.5, 0.5)
	barW := plotW / float64(bins)
	for i, h := range histogram {
		if h == 0 || tallest == 0 {
			continue
		}
		barH := plotH * float64(h) / float64(tallest)
		x := chartMargin + float64(i)*barW
		y := chartMargin + plotH - barH
		dc.DrawRectangle(x+1, y, math.Max(barW-2, 1), barH)
		dc.Fill()
	}

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored("Product popularity (interactions per product)", float64(chartWidth)/2, chartMargin/2, 0.5, 0.5)
	dc.DrawStringAnchored("interactions", float64(chartWidth)/2, float64(chartHeight)-chartMargin/3, 0.5, 0.5)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save popularity chart: %w", err)
	}
	return nil
}
