package access

import "testing"

func TestChatAllowed_EmptyAllowlistAllowsAll(t *testing.T) {
	for _, g := range []*Gate{NewGate(nil, 0), NewGate([]int64{}, 0)} {
		for _, chat := range []int64{0, 42, -100123456} {
			if !g.ChatAllowed(chat) {
				t.Fatalf("chat %d blocked with empty allowlist", chat)
			}
		}
	}
}

func TestChatAllowed_StrictMembership(t *testing.T) {
	g := NewGate([]int64{-100111, -100222}, 0)

	if !g.ChatAllowed(-100111) || !g.ChatAllowed(-100222) {
		t.Fatalf("listed chat blocked")
	}
	for _, chat := range []int64{-100333, 0, 100111} {
		if g.ChatAllowed(chat) {
			t.Fatalf("unlisted chat %d allowed", chat)
		}
	}
}

func TestEffectiveChatScope(t *testing.T) {
	// No primary configured: the fallback wins.
	g := NewGate(nil, 0)
	if got := g.EffectiveChatScope(555); got != 555 {
		t.Fatalf("scope = %d, want fallback 555", got)
	}

	// Primary configured: it overrides any fallback.
	g = NewGate(nil, -100999)
	if got := g.EffectiveChatScope(555); got != -100999 {
		t.Fatalf("scope = %d, want primary -100999", got)
	}
	if got := g.EffectiveChatScope(0); got != -100999 {
		t.Fatalf("scope = %d, want primary -100999", got)
	}
}
