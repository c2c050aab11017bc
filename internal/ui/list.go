package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moodmix/internal/models"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.ResolvedTrack] to implement [list.Item].
type trackItem struct {
	track models.ResolvedTrack
}

func (i trackItem) FilterValue() string { return i.track.Raw }
func (i trackItem) Title() string       { return i.track.Raw }
func (i trackItem) Description() string { return i.track.URI }

func trackItems(tracks []models.ResolvedTrack) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
