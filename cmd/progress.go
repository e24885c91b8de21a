package main

import (
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

var stageIcons = map[string]string{
	"Loading index":          "📂",
	"Loading document":       "📄",
	"Embedding chunks":       "🔢",
	"Saving index":           "💾",
	"Connecting to database": "🔌",
	"Storing chunks":         "💾",
}

// buildProgress shows a spinner per build stage and a progress bar while
// chunks are embedded.
type buildProgress struct {
	mu      sync.Mutex
	spinner *progressbar.ProgressBar
	bar     *progressbar.ProgressBar
}

func newBuildProgress() *buildProgress {
	return &buildProgress{}
}

func (p *buildProgress) stage(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clear()
	p.spinner = getSpinner(fmt.Sprintf("%s %s...", stageIcons[name], name))
}

func (p *buildProgress) embed(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.clear()
		p.bar = getProgressBar(total, "🔢 Embedding chunks...")
	}
	_ = p.bar.Set(done)
	if done >= total {
		_ = p.bar.Finish()
		fmt.Println()
		color.Green("✓ Embedded %d chunks", total)
		p.bar = nil
	}
}

func (p *buildProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}

func (p *buildProgress) clear() {
	if p.spinner != nil {
		_ = p.spinner.Finish()
		fmt.Print("\r")
		p.spinner = nil
	}
}
