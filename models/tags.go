// ABOUTME: Tag set helpers for opportunities
// ABOUTME: Keeps tags unique (case-insensitive) while preserving insertion order
package models

import "strings"

// NormalizeTags trims tags, drops empties and keeps the first of any
// case-insensitive repeats.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}

// AddTag appends tag unless it is already present. Reports whether it was added.
func (o *Opportunity) AddTag(tag string) bool {
	before := len(o.Tags)
	o.Tags = NormalizeTags(append(o.Tags, tag))
	return len(o.Tags) > before
}

// RemoveTag drops tag, matching case-insensitively. Reports whether it was present.
func (o *Opportunity) RemoveTag(tag string) bool {
	key := strings.ToLower(strings.TrimSpace(tag))
	for i, existing := range o.Tags {
		if strings.ToLower(existing) == key {
			o.Tags = append(o.Tags[:i:i], o.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// SplitTags parses a comma-separated tag list.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return NormalizeTags(strings.Split(s, ","))
}
