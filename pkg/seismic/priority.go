package seismic

import "path"

// isLiteralFilter reports whether a Restrictions identifier filter (e.g.
// Channel or Location) is a literal, non-wildcard value. Per spec.md
// §4.3 step 4 / §3, priority lists are honored only when the
// corresponding literal filter is absent. An empty filter and a filter
// containing any of Go's glob metacharacters are not literal.
func isLiteralFilter(filter string) bool {
	if filter == "" {
		return false
	}
	for _, r := range filter {
		switch r {
		case '*', '?', '[', ']':
			return false
		}
	}
	return true
}

// matchesPriority reports whether value matches pattern using fnmatch-style
// glob semantics (`*`, `?`, `[...]` character classes) — the same pattern
// language the original restrictions use for channel_priorities such as
// "HH[Z,N,E]". Go's stdlib path.Match implements this glob grammar exactly;
// no third-party glob matcher was found anywhere in the retrieval pack
// worth pulling in for a single first-match-wins scan (see DESIGN.md).
func matchesPriority(pattern, value string) bool {
	ok, err := path.Match(pattern, value)
	return err == nil && ok
}

// FilterChannelPriority implements the first-match-wins priority filter
// from spec.md §4.3 step 4. priorities is an ordered list of glob
// patterns; the first pattern that matches at least one item's field wins,
// and only items matching that pattern are kept. If no pattern matches
// anything, every item is dropped (mirrors the original's groupby +
// fnmatch filter: an unmatched group contributes nothing).
//
// keyFn extracts the field to match (channel code or location code) from
// each item; items is returned in its original relative order, filtered.
//
// FilterChannelPriority is idempotent (spec.md §8 invariant 6): applying
// it to its own output with the same priorities and keyFn yields the same
// set, since every surviving item already matches the winning pattern and
// no other, earlier pattern could have won on the first pass without also
// winning here.
func FilterChannelPriority(items []*Channel, priorities []string, keyFn func(*Channel) string) []*Channel {
	if len(priorities) == 0 {
		return items
	}
	for _, pattern := range priorities {
		var kept []*Channel
		for _, it := range items {
			if matchesPriority(pattern, keyFn(it)) {
				kept = append(kept, it)
			}
		}
		if len(kept) > 0 {
			return kept
		}
	}
	return nil
}

// groupByLocation groups channels by Location, preserving first-seen
// order of each group (stable with respect to input order), matching the
// original's `itertools.groupby(sorted(channels, key=get_loc), get_loc)`
// semantics closely enough for this package's purposes: within a
// (network, station), the identity of the winning location matters, not
// the output ordering, which is re-derived by the caller from station
// insertion order regardless.
func groupByLocation(channels []*Channel) map[string][]*Channel {
	groups := map[string][]*Channel{}
	order := []string{}
	for _, ch := range channels {
		if _, ok := groups[ch.Location]; !ok {
			order = append(order, ch.Location)
		}
		groups[ch.Location] = append(groups[ch.Location], ch)
	}
	return groups
}

// ApplyChannelAndLocationPriority runs the full two-stage priority filter
// from spec.md §4.3 step 4: group by location and apply channel_priorities
// within each group (unless channelFilter is a literal), then apply
// location_priorities across the surviving channels, keeping only those
// whose location equals the single highest-priority location present
// (unless locationFilter is a literal).
func ApplyChannelAndLocationPriority(channels []*Channel, channelPriorities, locationPriorities []string, channelFilter, locationFilter string) []*Channel {
	if !isLiteralFilter(channelFilter) {
		groups := groupByLocation(channels)
		var filtered []*Channel
		for _, loc := range locationsInOrder(channels) {
			filtered = append(filtered, FilterChannelPriority(groups[loc], channelPriorities, func(c *Channel) string { return c.Channel })...)
		}
		channels = filtered
	}

	// Reuses FilterChannelPriority itself rather than hand-rolling a
	// present-location scan, so the location stage shares the channel
	// stage's first-match-wins and drop-everything-on-no-match semantics:
	// the original applies the identical filter_channel_priority helper to
	// both the channel and location groupings (download_status.py's
	// ClientDownloadHelper.get_availability), never two different rules.
	if !isLiteralFilter(locationFilter) {
		channels = FilterChannelPriority(channels, locationPriorities, func(c *Channel) string { return c.Location })
	}
	return channels
}

func locationsInOrder(channels []*Channel) []string {
	seen := map[string]struct{}{}
	var order []string
	for _, ch := range channels {
		if _, ok := seen[ch.Location]; !ok {
			seen[ch.Location] = struct{}{}
			order = append(order, ch.Location)
		}
	}
	return order
}
