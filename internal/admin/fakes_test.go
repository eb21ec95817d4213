package admin

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type fakeDAO struct {
	mu      sync.Mutex
	records map[string]Record
	nextID  int
	failOn  map[string]error
}

func newFakeDAO(records ...Record) *fakeDAO {
	d := &fakeDAO{records: map[string]Record{}, failOn: map[string]error{}}
	for _, r := range records {
		d.nextID++
		id := strconv.Itoa(d.nextID)
		rec := Record{"id": id}
		for k, v := range r {
			rec[k] = v
		}
		d.records[id] = rec
	}
	return d
}

func (d *fakeDAO) sortedIDs() []string {
	ids := make([]string, 0, len(d.records))
	for id := range d.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}

func (d *fakeDAO) List(_ context.Context, offset, limit int, search string) ([]Record, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failOn["list"]; err != nil {
		return nil, 0, err
	}
	var matched []Record
	for _, id := range d.sortedIDs() {
		rec := d.records[id]
		if search != "" {
			name, _ := rec["name"].(string)
			if !strings.Contains(strings.ToLower(name), strings.ToLower(search)) {
				continue
			}
		}
		matched = append(matched, rec)
	}
	total := len(matched)
	if offset > total {
		offset = total
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (d *fakeDAO) Get(_ context.Context, id string) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (d *fakeDAO) Create(_ context.Context, data map[string]any) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failOn["create"]; err != nil {
		return nil, err
	}
	d.nextID++
	id := strconv.Itoa(d.nextID)
	rec := Record{"id": id}
	for k, v := range data {
		rec[k] = v
	}
	d.records[id] = rec
	return rec, nil
}

func (d *fakeDAO) Update(_ context.Context, id string, data map[string]any) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	for k, v := range data {
		rec[k] = v
	}
	return rec, nil
}

func (d *fakeDAO) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failOn["delete"]; err != nil {
		return err
	}
	if _, ok := d.records[id]; !ok {
		return ErrRecordNotFound
	}
	delete(d.records, id)
	return nil
}

func (d *fakeDAO) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

type fakeAccount struct {
	password  string
	principal Principal
}

type fakeAuth struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{accounts: map[string]fakeAccount{
		"admin": {password: "admin", principal: Principal{ID: "1", Username: "admin", DisplayName: "Administrator", IsAdmin: true}},
		"staff": {password: "staff", principal: Principal{ID: "2", Username: "staff", DisplayName: "Staff", IsAdmin: false}},
	}}
}

func (a *fakeAuth) Authenticate(_ context.Context, username, password string) (*Principal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[username]
	if !ok || acc.password != password {
		return nil, ErrInvalidCredentials
	}
	p := acc.principal
	return &p, nil
}

func (a *fakeAuth) GetUser(_ context.Context, id string) (*Principal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acc := range a.accounts {
		if acc.principal.ID == id {
			p := acc.principal
			return &p, nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (a *fakeAuth) demote(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc := a.accounts[username]
	acc.principal.IsAdmin = false
	a.accounts[username] = acc
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) ObserveAdmin(_ context.Context, ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) actions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.events))
	for _, ev := range o.events {
		status := "ok"
		if ev.Err != nil {
			status = "error"
		}
		out = append(out, ev.Action+":"+status)
	}
	return out
}

var errStorage = errors.New("pq: connection reset by peer")
