package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Item is one hideable issue entry on a page.
// The store's IsVisible flag is authoritative; page and popup derive from it.
type Item struct {
	ID        string      `json:"id"`
	Ref       ExternalRef `json:"gitHub"`
	IsVisible bool        `json:"isVisible"`
}

// ExternalRef points back at the issue the item was rendered from.
type ExternalRef struct {
	Number int    `json:"issue"`
	Title  string `json:"title"`
}

// ItemID builds the store key for an issue: "owner/repo#number".
func ItemID(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

// ParseItemID splits an id built by ItemID.
func ParseItemID(id string) (owner, repo string, number int, err error) {
	path, num, ok := strings.Cut(id, "#")
	if !ok {
		return "", "", 0, fmt.Errorf("item id %q: want owner/repo#number", id)
	}
	owner, repo, ok = strings.Cut(path, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", 0, fmt.Errorf("item id %q: want owner/repo#number", id)
	}
	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("item id %q: bad issue number", id)
	}
	return owner, repo, number, nil
}

// WithVisibility returns a copy of i with IsVisible set.
func (i Item) WithVisibility(visible bool) Item {
	i.IsVisible = visible
	return i
}
