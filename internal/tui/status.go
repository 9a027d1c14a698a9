package tui

import (
	"fmt"
	"strings"
)

const (
	MsgSearching   = "Searching…"
	MsgLoadingMore = "Loading more…"
	MsgOpening     = "Opening…"
	MsgCleared     = "Cleared"
	MsgRetrying    = "Retrying…"
	MsgNoRetry     = "Nothing to retry"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgNoResults(term string) string {
	return fmt.Sprintf("No more results for '%s'", strings.TrimSpace(term))
}

func MsgSearchFailed(term string, page int, err error) string {
	if page <= 1 {
		return fmt.Sprintf("Search '%s' failed: %v", term, err)
	}
	return fmt.Sprintf("Page %d of '%s' failed: %v", page, term, err)
}

func MsgRemovedHistory(term string) string {
	return fmt.Sprintf("Removed '%s' from history", term)
}

func MsgOptions(sort, window string) string {
	return fmt.Sprintf("Sort: %s • window: %s", sort, window)
}
