package ws

import "testing"

func TestHubAddAndRemoveGroupClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(KindGroup, "g1", nil, ConnInfo{ConnID: "c1"})
	if hub.ClientCount(KindGroup, "g1") != 1 {
		t.Fatalf("expected group room to be created")
	}

	hub.RemoveClient(KindGroup, "g1", nil)
	if hub.ClientCount(KindGroup, "g1") != 0 {
		t.Fatalf("expected group room to be removed")
	}
}

func TestHubAddAndRemoveChannelClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(KindChannel, "ch1", nil, ConnInfo{ConnID: "c2"})
	if hub.ClientCount(KindChannel, "ch1") != 1 {
		t.Fatalf("expected channel room to be created")
	}

	hub.RemoveClient(KindChannel, "ch1", nil)
	if hub.ClientCount(KindChannel, "ch1") != 0 {
		t.Fatalf("expected channel room to be removed")
	}
}

func TestHubRoomsAreIndependent(t *testing.T) {
	hub := NewHub()

	hub.AddClient(KindGroup, "g1", nil, ConnInfo{ConnID: "c1"})
	hub.AddClient(KindChannel, "g1", nil, ConnInfo{ConnID: "c2"})

	if hub.ClientCount(KindGroup, "g1") != 1 || hub.ClientCount(KindChannel, "g1") != 1 {
		t.Fatalf("expected one client per room kind")
	}

	hub.RemoveClient(KindGroup, "g1", nil)
	if hub.ClientCount(KindChannel, "g1") != 1 {
		t.Fatalf("expected channel room to survive group removal")
	}
}
