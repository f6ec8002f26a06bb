package assist

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/querystorm/internal/engine/patch"
)

type fixedProducer struct {
	name string
	mod  patch.Modification
	err  error
	got  Request
}

func (p *fixedProducer) Name() string { return p.name }

func (p *fixedProducer) Suggest(_ context.Context, req Request) (patch.Modification, error) {
	p.got = req
	return p.mod, p.err
}

func TestSetGet(t *testing.T) {
	a := &fixedProducer{name: "a"}
	b := &fixedProducer{name: "b"}
	s := NewSet(a, b)

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v", got)
	}

	p, err := s.Get("")
	if err != nil || p != a {
		t.Errorf("Get(\"\") = %v, %v, want default a", p, err)
	}
	p, err = s.Get("b")
	if err != nil || p != b {
		t.Errorf("Get(b) = %v, %v", p, err)
	}
	if _, err := s.Get("c"); !errors.Is(err, ErrProducerNotFound) {
		t.Errorf("Get(c) error = %v, want ErrProducerNotFound", err)
	}
}

func TestSetSuggest(t *testing.T) {
	good := &fixedProducer{name: "good", mod: patch.Append("LIMIT 10")}
	bad := &fixedProducer{name: "bad", mod: patch.Modification{Kind: "delete"}}
	failing := &fixedProducer{name: "failing", err: errors.New("boom")}
	s := NewSet(good, bad, failing)

	req := Request{ConsoleID: "c1", Content: "select 1", Prompt: "limit it"}
	mod, err := s.Suggest(context.Background(), "good", req)
	if err != nil {
		t.Fatalf("Suggest error = %v", err)
	}
	if mod.Kind != patch.KindAppend || mod.Content != "LIMIT 10" {
		t.Errorf("Suggest = %v", mod)
	}
	if good.got != req {
		t.Errorf("producer got %+v, want %+v", good.got, req)
	}

	if _, err := s.Suggest(context.Background(), "bad", req); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("bad producer error = %v, want ErrInvalidResponse", err)
	}
	if _, err := s.Suggest(context.Background(), "failing", req); err == nil {
		t.Error("failing producer should return an error")
	}
}
