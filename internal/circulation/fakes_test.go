package circulation

import (
	"context"
	"fmt"
)

// call records collaborator interactions in the order they happened.
type call struct {
	kind     string
	memberID int64
	title    string
	copies   int
}

type recorder struct {
	calls []call
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, c := range r.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) kinds() []string {
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.kind)
	}
	return out
}

type fakeDirectory struct {
	rec     *recorder
	order   []string
	books   map[string]Book
	findErr error
	saveErr error
	listErr error
}

func newFakeDirectory(rec *recorder, books ...Book) *fakeDirectory {
	d := &fakeDirectory{rec: rec, books: make(map[string]Book)}
	for _, b := range books {
		d.put(b)
	}
	return d
}

func (d *fakeDirectory) put(b Book) {
	if _, ok := d.books[b.Title]; !ok {
		d.order = append(d.order, b.Title)
	}
	d.books[b.Title] = b
}

func (d *fakeDirectory) Find(_ context.Context, title string) (Book, bool, error) {
	if d.findErr != nil {
		return Book{}, false, d.findErr
	}
	b, ok := d.books[title]
	return b, ok, nil
}

func (d *fakeDirectory) Save(_ context.Context, book Book) error {
	d.rec.calls = append(d.rec.calls, call{kind: "save", title: book.Title, copies: book.Copies})
	if d.saveErr != nil {
		return d.saveErr
	}
	d.put(book)
	return nil
}

func (d *fakeDirectory) ListAll(_ context.Context) ([]Book, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	out := make([]Book, 0, len(d.order))
	for _, title := range d.order {
		out = append(out, d.books[title])
	}
	return out, nil
}

type fakeValidator struct {
	valid map[int64]bool
	err   error
}

func (v fakeValidator) IsValid(_ context.Context, memberID int64) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return v.valid[memberID], nil
}

type fakeNotifier struct {
	rec *recorder
}

func (n fakeNotifier) NotifyBorrow(_ context.Context, memberID int64, title string) {
	n.rec.calls = append(n.rec.calls, call{kind: "borrow", memberID: memberID, title: title})
}

func (n fakeNotifier) NotifyReturn(_ context.Context, memberID int64, title string) {
	n.rec.calls = append(n.rec.calls, call{kind: "return", memberID: memberID, title: title})
}

type fixture struct {
	rec *recorder
	dir *fakeDirectory
	val fakeValidator
	svc Service
}

func newFixture(validMembers []int64, books ...Book) *fixture {
	rec := &recorder{}
	dir := newFakeDirectory(rec, books...)
	val := fakeValidator{valid: make(map[int64]bool)}
	for _, id := range validMembers {
		val.valid[id] = true
	}
	return &fixture{
		rec: rec,
		dir: dir,
		val: val,
		svc: NewService(dir, val, fakeNotifier{rec: rec}),
	}
}

func (f *fixture) stored(title string) Book {
	b, ok := f.dir.books[title]
	if !ok {
		panic(fmt.Sprintf("book %q not stored", title))
	}
	return b
}
