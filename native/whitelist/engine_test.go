package whitelist

import (
	"errors"
	"testing"

	"creditchain/core/types"
)

type mockState struct {
	registry *Registry
	statuses map[types.Identity]*Status
}

func newMockState() *mockState {
	return &mockState{statuses: make(map[types.Identity]*Status)}
}

func (m *mockState) GetWhitelistRegistry() (*Registry, error) {
	return m.registry.Clone(), nil
}

func (m *mockState) PutWhitelistRegistry(registry *Registry) error {
	m.registry = registry.Clone()
	return nil
}

func (m *mockState) GetWhitelistStatus(user types.Identity) (*Status, error) {
	status, ok := m.statuses[user]
	if !ok {
		return nil, nil
	}
	return status.Clone(), nil
}

func (m *mockState) PutWhitelistStatus(status *Status) error {
	m.statuses[status.User] = status.Clone()
	return nil
}

func testIdentity(b byte) types.Identity {
	var id types.Identity
	id[0] = b
	return id
}

func newTestEngine(t *testing.T) (*Engine, *mockState, types.Identity) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1_000 })
	authority := testIdentity(0xA0)
	if _, err := engine.Initialize(authority); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return engine, state, authority
}

func TestInitializeOnce(t *testing.T) {
	engine, _, authority := newTestEngine(t)
	if _, err := engine.Initialize(authority); !errors.Is(err, errRegistryExists) {
		t.Fatalf("err = %v, want registry exists", err)
	}
}

func TestAddAndRemoveAuthorityOnly(t *testing.T) {
	engine, state, authority := newTestEngine(t)
	user := testIdentity(1)

	if _, err := engine.Add(testIdentity(9), user); !errors.Is(err, errNotAuthority) {
		t.Fatalf("err = %v, want not authority", err)
	}

	status, err := engine.Add(authority, user)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !status.Whitelisted || status.WhitelistedBy != authority {
		t.Fatalf("status = %+v", status)
	}
	if state.registry.TotalUsers != 1 {
		t.Fatalf("totalUsers = %d, want 1", state.registry.TotalUsers)
	}
	if _, err := engine.Add(authority, user); !errors.Is(err, errAlreadyListed) {
		t.Fatalf("err = %v, want already listed", err)
	}

	ok, err := engine.IsWhitelisted(user)
	if err != nil || !ok {
		t.Fatalf("IsWhitelisted = %v, %v", ok, err)
	}

	if _, err := engine.Remove(authority, user); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if state.registry.TotalUsers != 0 {
		t.Fatalf("totalUsers = %d, want 0", state.registry.TotalUsers)
	}
	ok, err = engine.IsWhitelisted(user)
	if err != nil || ok {
		t.Fatalf("IsWhitelisted after removal = %v, %v", ok, err)
	}
	if _, err := engine.Remove(authority, user); !errors.Is(err, errNotListed) {
		t.Fatalf("err = %v, want not listed", err)
	}
}

func TestStaticSetAndComposition(t *testing.T) {
	engine, _, authority := newTestEngine(t)
	operator := testIdentity(0x10)
	dynamicUser := testIdentity(0x20)
	stranger := testIdentity(0x30)

	static := NewStaticSet(operator)
	if _, err := engine.Add(authority, dynamicUser); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Static membership and ledger records compose with short-circuit OR.
	combined := AnyOf{static, engine}
	cases := []struct {
		user types.Identity
		want bool
	}{
		{operator, true},
		{dynamicUser, true},
		{stranger, false},
	}
	for _, tc := range cases {
		ok, err := combined.IsWhitelisted(tc.user)
		if err != nil {
			t.Fatalf("IsWhitelisted: %v", err)
		}
		if ok != tc.want {
			t.Fatalf("IsWhitelisted(%x) = %v, want %v", tc.user[0], ok, tc.want)
		}
	}
}
