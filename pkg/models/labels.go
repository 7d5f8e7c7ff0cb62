package models

import "strings"

// Severity of a diagnosed condition.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Fixed label set. Order is the classifier's output order.
const (
	LabelBrownBlight       = "Brown_Blight"
	LabelGrayBlight        = "Gray_Blight"
	LabelHealthyLeaf       = "Healthy_leaf"
	LabelHelopeltis        = "Helopeltis"
	LabelRedRust           = "Red_Rust"
	LabelRedSpider         = "Red_spider"
	LabelSunlightScorching = "Sunlight_Scorching"
)

// LabelInfo describes one class of the label set.
type LabelInfo struct {
	Name        string   `json:"name" yaml:"name"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Severity    Severity `json:"severity" yaml:"severity"`
}

var labelCatalog = []LabelInfo{
	{Name: LabelBrownBlight, Severity: SeverityMedium},
	{Name: LabelGrayBlight, Severity: SeverityMedium},
	{Name: LabelHealthyLeaf, Severity: SeverityNone},
	{Name: LabelHelopeltis, Severity: SeverityMedium},
	{Name: LabelRedRust, Severity: SeverityMedium},
	{Name: LabelRedSpider, Severity: SeverityHigh},
	{Name: LabelSunlightScorching, Severity: SeverityLow},
}

// LabelCount is the length of every ClassDistribution.
var LabelCount = len(labelCatalog)

// Labels returns the label names in distribution order.
func Labels() []string {
	names := make([]string, len(labelCatalog))
	for i, l := range labelCatalog {
		names[i] = l.Name
	}
	return names
}

// LabelCatalog returns a copy of the label metadata with display names filled in.
func LabelCatalog() []LabelInfo {
	out := make([]LabelInfo, len(labelCatalog))
	for i, l := range labelCatalog {
		l.DisplayName = DisplayName(l.Name)
		out[i] = l
	}
	return out
}

// LookupLabel finds a label by exact name, falling back to a case-insensitive match.
func LookupLabel(name string) (LabelInfo, bool) {
	for _, l := range LabelCatalog() {
		if l.Name == name {
			return l, true
		}
	}
	for _, l := range LabelCatalog() {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return LabelInfo{}, false
}

// LabelIndex returns the distribution index of a label, or -1.
func LabelIndex(name string) int {
	for i, l := range labelCatalog {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func DisplayName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
