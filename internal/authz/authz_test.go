package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/choreboss/internal/credential"
	"github.com/dukerupert/choreboss/internal/metrics"
	"github.com/dukerupert/choreboss/internal/model"
)

type fakePeople struct {
	people []model.Person
	creds  []model.Credential
	err    error
	scans  int
}

func (f *fakePeople) Credentials(context.Context) ([]model.Credential, error) {
	f.scans++
	return f.creds, f.err
}

func (f *fakePeople) GetByID(_ context.Context, id int64) (*model.Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.people {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

type fakeChores map[int64]*model.Chore

func (f fakeChores) GetByID(_ context.Context, id int64) (*model.Chore, error) {
	return f[id], nil
}

// plainVerifier treats the digest as "pin:<secret>" so tests skip bcrypt.
type plainVerifier struct{ calls int }

func (v *plainVerifier) Verify(secret, digest string) bool {
	v.calls++
	return digest == "pin:"+secret
}

func ptr(id int64) *int64 { return &id }

// household: 1 Alice admin (1111), 2 Bob (2222), 3 Carol (3333).
// Chore 10 is assigned to Bob; chore 11 is unassigned.
func household() (*fakePeople, fakeChores) {
	people := &fakePeople{
		people: []model.Person{
			{ID: 1, FirstName: "Alice", IsAdmin: true, Sequence: 1},
			{ID: 2, FirstName: "Bob", Sequence: 2},
			{ID: 3, FirstName: "Carol", Sequence: 3},
		},
		creds: []model.Credential{
			{PersonID: 1, IsAdmin: true, Digest: "pin:1111"},
			{PersonID: 2, Digest: "pin:2222"},
			{PersonID: 3, Digest: "pin:3333"},
		},
	}
	chores := fakeChores{
		10: {ID: 10, Name: "Dishes", AssignedTo: ptr(2)},
		11: {ID: 11, Name: "Trash"},
	}
	return people, chores
}

func newTestPolicy(t *testing.T, people People, chores Chores) (*Policy, *plainVerifier) {
	t.Helper()
	v := &plainVerifier{}
	p, err := New(people, chores, v)
	require.NoError(t, err)
	return p, v
}

func TestAuthorize(t *testing.T) {
	people, chores := household()
	p, _ := newTestPolicy(t, people, chores)

	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"assignee completes", Request{Action: CompleteChore, PIN: "2222", ChoreID: 10}, true},
		{"admin completes", Request{Action: CompleteChore, PIN: "1111", ChoreID: 10}, true},
		{"other person cannot complete", Request{Action: CompleteChore, PIN: "3333", ChoreID: 10}, false},
		{"unassigned chore needs admin", Request{Action: CompleteChore, PIN: "2222", ChoreID: 11}, false},
		{"missing chore", Request{Action: CompleteChore, PIN: "1111", ChoreID: 99}, false},
		{"zero chore", Request{Action: CompleteChore, PIN: "1111"}, false},

		{"delete chore non-admin", Request{Action: DeleteChore, PIN: "2222", ChoreID: 10}, false},
		{"delete chore admin", Request{Action: DeleteChore, PIN: "1111", ChoreID: 10}, true},
		{"edit chore admin", Request{Action: EditChore, PIN: "1111", ChoreID: 11}, true},
		{"edit chore assignee", Request{Action: EditChore, PIN: "2222", ChoreID: 10}, false},

		{"edit self", Request{Action: EditPerson, PIN: "3333", PersonID: 3}, true},
		{"edit other", Request{Action: EditPerson, PIN: "3333", PersonID: 2}, false},
		{"admin edits other", Request{Action: EditPerson, PIN: "1111", PersonID: 2}, true},
		{"edit missing person", Request{Action: EditPerson, PIN: "1111", PersonID: 42}, false},

		{"promote self non-admin", Request{Action: SetAdmin, PIN: "3333", PersonID: 3}, false},
		{"admin promotes other", Request{Action: SetAdmin, PIN: "1111", PersonID: 3}, true},

		{"delete person admin", Request{Action: DeletePerson, PIN: "1111", PersonID: 3}, true},
		{"delete self non-admin", Request{Action: DeletePerson, PIN: "3333", PersonID: 3}, false},

		{"reorder admin", Request{Action: ChangeSequence, PIN: "1111"}, true},
		{"reorder non-admin", Request{Action: ChangeSequence, PIN: "2222"}, false},
		{"move admin", Request{Action: ChangeSequence, PIN: "1111", PersonID: 2}, true},
		{"move missing person", Request{Action: ChangeSequence, PIN: "1111", PersonID: 42}, false},

		{"add person admin", Request{Action: AddPerson, PIN: "1111"}, true},
		{"add person non-admin", Request{Action: AddPerson, PIN: "2222"}, false},
		{"wrong pin", Request{Action: AddPerson, PIN: "9999"}, false},
		{"empty pin", Request{Action: DeleteChore, ChoreID: 10}, false},

		{"unknown action", Request{Action: "launch_rocket", PIN: "1111"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Authorize(context.Background(), tt.req))
		})
	}
}

func TestAuthorizeBootstrapAddPerson(t *testing.T) {
	people := &fakePeople{
		people: []model.Person{{ID: 1, FirstName: "Kid", Sequence: 1}},
		creds:  []model.Credential{{PersonID: 1, Digest: "pin:1234"}},
	}
	p, _ := newTestPolicy(t, people, fakeChores{})

	assert.True(t, p.Authorize(context.Background(), Request{Action: AddPerson, PIN: "anything"}))
	assert.True(t, p.Authorize(context.Background(), Request{Action: AddPerson}))

	// Bootstrap only covers adding people.
	assert.False(t, p.Authorize(context.Background(), Request{Action: DeletePerson, PIN: "1234", PersonID: 1}))
}

func TestAuthorizeEmptyHousehold(t *testing.T) {
	p, _ := newTestPolicy(t, &fakePeople{}, fakeChores{})
	assert.True(t, p.Authorize(context.Background(), Request{Action: AddPerson, PIN: "0000"}))
	assert.False(t, p.Authorize(context.Background(), Request{Action: ChangeSequence, PIN: "0000"}))
}

func TestAuthorizeStoreErrorDenies(t *testing.T) {
	people, chores := household()
	people.err = errors.New("disk on fire")
	p, _ := newTestPolicy(t, people, chores)

	assert.False(t, p.Authorize(context.Background(), Request{Action: AddPerson, PIN: "1111"}))
	assert.False(t, p.Authorize(context.Background(), Request{Action: EditPerson, PIN: "1111", PersonID: 1}))
}

func TestAuthorizeSingleCredentialScan(t *testing.T) {
	people, chores := household()
	p, v := newTestPolicy(t, people, chores)

	p.Authorize(context.Background(), Request{Action: CompleteChore, PIN: "3333", ChoreID: 10})
	assert.Equal(t, 1, people.scans)
	// Only the admin and the assignee are worth verifying.
	assert.Equal(t, 2, v.calls)
}

func TestAuthorizeCountsDecisions(t *testing.T) {
	people, chores := household()
	m := metrics.New()
	p, err := New(people, chores, &plainVerifier{}, WithMetrics(m))
	require.NoError(t, err)

	p.Authorize(context.Background(), Request{Action: DeleteChore, PIN: "1111", ChoreID: 10})
	p.Authorize(context.Background(), Request{Action: DeleteChore, PIN: "2222", ChoreID: 10})

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "choreboss_authz_decisions_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestAuthorizeWithBcrypt(t *testing.T) {
	h := credential.NewBcrypt(bcrypt.MinCost)
	adminHash, err := h.Hash("4321")
	require.NoError(t, err)
	kidHash, err := h.Hash("1234")
	require.NoError(t, err)

	people := &fakePeople{
		people: []model.Person{{ID: 1, IsAdmin: true}, {ID: 2}},
		creds: []model.Credential{
			{PersonID: 1, IsAdmin: true, Digest: adminHash},
			{PersonID: 2, Digest: kidHash},
		},
	}
	p, err := New(people, fakeChores{}, h)
	require.NoError(t, err)

	assert.True(t, p.Authorize(context.Background(), Request{Action: ChangeSequence, PIN: "4321"}))
	assert.False(t, p.Authorize(context.Background(), Request{Action: ChangeSequence, PIN: "1234"}))
}

func TestNewFromYAMLRejectsBadPolicies(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"not yaml", `rules: [`},
		{"bad expression", "rules:\n  - action: add_person\n    subject: none\n    allow: admin_match &&\n"},
		{"unknown fact", "rules:\n  - action: add_person\n    subject: none\n    allow: is_root\n"},
		{"non boolean", "rules:\n  - action: add_person\n    subject: none\n    allow: \"'yes'\"\n"},
		{"bad subject", "rules:\n  - action: add_person\n    subject: planet\n    allow: admin_match\n"},
		{"duplicate", "rules:\n  - action: add_person\n    subject: none\n    allow: admin_match\n  - action: add_person\n    subject: none\n    allow: admins_exist\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromYAML([]byte(tt.doc), &fakePeople{}, fakeChores{}, &plainVerifier{})
			assert.Error(t, err)
		})
	}
}

func TestNewFromYAMLCustomRule(t *testing.T) {
	people, chores := household()
	doc := "rules:\n  - action: delete_chore\n    subject: chore\n    allow: admin_match || assignee_match\n"
	p, err := NewFromYAML([]byte(doc), people, chores, &plainVerifier{})
	require.NoError(t, err)

	assert.True(t, p.Authorize(context.Background(), Request{Action: DeleteChore, PIN: "2222", ChoreID: 10}))
	// Actions missing from the document are denied.
	assert.False(t, p.Authorize(context.Background(), Request{Action: AddPerson, PIN: "1111"}))
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("edit_chore")
	assert.True(t, ok)
	assert.Equal(t, EditChore, a)

	a, ok = ParseAction("set_admin")
	assert.True(t, ok)
	assert.Equal(t, SetAdmin, a)

	_, ok = ParseAction("EDIT_CHORE")
	assert.False(t, ok)
}
