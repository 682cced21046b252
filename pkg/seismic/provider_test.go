package seismic

import "testing"

func TestResolveCapabilityOverrideTakesPrecedence(t *testing.T) {
	overrides := map[string]CapabilityMode{"resif": CapabilityUnreliable}
	mode, reliable := ResolveCapability("resif", overrides, map[string]struct{}{"matchtimeseries": {}})
	if mode != CapabilityUnreliable || reliable {
		t.Fatalf("expected override to force unreliable, got mode=%v reliable=%v", mode, reliable)
	}
}

func TestResolveCapabilityMatchTimeseriesPreferred(t *testing.T) {
	mode, reliable := ResolveCapability("iris", nil, map[string]struct{}{
		"matchtimeseries":     {},
		"includeavailability": {},
	})
	if mode != CapabilityMatchTimeseries || !reliable {
		t.Fatalf("expected matchtimeseries preferred over includeavailability, got mode=%v reliable=%v", mode, reliable)
	}
}

func TestResolveCapabilityIncludeAvailabilityFallback(t *testing.T) {
	mode, reliable := ResolveCapability("orfeus", nil, map[string]struct{}{"includeavailability": {}})
	if mode != CapabilityIncludeAvailability || !reliable {
		t.Fatalf("expected includeavailability mode, got mode=%v reliable=%v", mode, reliable)
	}
}

func TestResolveCapabilityUnreliableWhenNeitherAdvertised(t *testing.T) {
	mode, reliable := ResolveCapability("geofon", nil, map[string]struct{}{})
	if mode != CapabilityUnreliable || reliable {
		t.Fatalf("expected unreliable with neither capability advertised, got mode=%v reliable=%v", mode, reliable)
	}
}

func TestDefaultCapabilityOverridesResif(t *testing.T) {
	if DefaultCapabilityOverrides["resif"] != CapabilityUnreliable {
		t.Error("expected resif to default to CapabilityUnreliable")
	}
}
