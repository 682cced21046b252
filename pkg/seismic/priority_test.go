package seismic

import "testing"

func TestIsLiteralFilter(t *testing.T) {
	cases := []struct {
		filter string
		want   bool
	}{
		{"", false},
		{"HHZ", true},
		{"HH*", false},
		{"HH?", false},
		{"HH[ZNE]", false},
	}
	for _, c := range cases {
		if got := isLiteralFilter(c.filter); got != c.want {
			t.Errorf("isLiteralFilter(%q) = %v, want %v", c.filter, got, c.want)
		}
	}
}

func TestMatchesPriority(t *testing.T) {
	if !matchesPriority("HH[ZNE]", "HHZ") {
		t.Error("expected HH[ZNE] to match HHZ")
	}
	if matchesPriority("HH[ZNE]", "BHZ") {
		t.Error("expected HH[ZNE] not to match BHZ")
	}
}

func chOf(location, channel string) *Channel {
	return &Channel{Location: location, Channel: channel}
}

func TestFilterChannelPriorityFirstMatchWins(t *testing.T) {
	items := []*Channel{chOf("00", "BHZ"), chOf("00", "HHZ"), chOf("00", "HHN")}
	got := FilterChannelPriority(items, DefaultChannelPriorities, func(c *Channel) string { return c.Channel })
	if len(got) != 2 {
		t.Fatalf("expected HH[ZNE] pattern to win with 2 matches, got %d", len(got))
	}
	for _, c := range got {
		if c.Channel[:2] != "HH" {
			t.Errorf("expected only HH channels to survive, got %s", c.Channel)
		}
	}
}

func TestFilterChannelPriorityNoMatch(t *testing.T) {
	items := []*Channel{chOf("00", "XXZ")}
	got := FilterChannelPriority(items, DefaultChannelPriorities, func(c *Channel) string { return c.Channel })
	if got != nil {
		t.Fatalf("expected nil when no pattern matches, got %+v", got)
	}
}

func TestFilterChannelPriorityEmptyPriorities(t *testing.T) {
	items := []*Channel{chOf("00", "XXZ")}
	got := FilterChannelPriority(items, nil, func(c *Channel) string { return c.Channel })
	if len(got) != 1 {
		t.Fatalf("expected items unchanged when priorities is empty, got %+v", got)
	}
}

func TestApplyChannelAndLocationPriority(t *testing.T) {
	channels := []*Channel{
		chOf("10", "BHZ"),
		chOf("10", "BHN"),
		chOf("00", "HHZ"),
		chOf("00", "HHN"),
	}
	got := ApplyChannelAndLocationPriority(channels, DefaultChannelPriorities, DefaultLocationPriorities, "", "")
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving channels, got %d: %+v", len(got), got)
	}
	for _, c := range got {
		if c.Location != "00" {
			t.Errorf("expected location '00' to win over '10', got %s", c.Location)
		}
	}
}

func TestApplyChannelAndLocationPriorityLiteralChannelSkipsFilter(t *testing.T) {
	channels := []*Channel{chOf("00", "XXZ")}
	got := ApplyChannelAndLocationPriority(channels, DefaultChannelPriorities, DefaultLocationPriorities, "XXZ", "")
	if len(got) != 1 {
		t.Fatalf("expected literal channel filter to bypass priority filtering, got %+v", got)
	}
}

func TestApplyChannelAndLocationPriorityDropsOnNoLocationMatch(t *testing.T) {
	channels := []*Channel{chOf("99", "HHZ"), chOf("99", "HHN")}
	got := ApplyChannelAndLocationPriority(channels, DefaultChannelPriorities, DefaultLocationPriorities, "", "")
	if got != nil {
		t.Fatalf("expected every channel dropped when no location priority matches, got %+v", got)
	}
}

func TestApplyChannelAndLocationPriorityLiteralLocationSkipsFilter(t *testing.T) {
	channels := []*Channel{chOf("99", "HHZ")}
	got := ApplyChannelAndLocationPriority(channels, DefaultChannelPriorities, DefaultLocationPriorities, "", "99")
	if len(got) != 1 {
		t.Fatalf("expected literal location filter to bypass priority filtering, got %+v", got)
	}
}

func TestFilterChannelPriorityIdempotent(t *testing.T) {
	items := []*Channel{chOf("00", "BHZ"), chOf("00", "HHZ"), chOf("00", "HHN")}
	first := FilterChannelPriority(items, DefaultChannelPriorities, func(c *Channel) string { return c.Channel })
	second := FilterChannelPriority(first, DefaultChannelPriorities, func(c *Channel) string { return c.Channel })
	if len(first) != len(second) {
		t.Fatalf("expected idempotent filtering, got %d then %d", len(first), len(second))
	}
}
