package streambuf

import (
	"bytes"
	"errors"
	"testing"
)

func TestSendQueue_PushAndReset(t *testing.T) {
	s := NewSendQueue(8)

	if err := s.Push([]byte{2, 5, 82}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := s.Push([]byte{95, 3}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if !bytes.Equal(s.Bytes(), []byte{2, 5, 82, 95, 3}) {
		t.Errorf("Bytes() = %v, want [2 5 82 95 3]", s.Bytes())
	}
	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}

	s.Reset()
	if s.Len() != 0 || len(s.Bytes()) != 0 {
		t.Errorf("after Reset Len() = %d, Bytes() = %v, want empty", s.Len(), s.Bytes())
	}
}

func TestSendQueue_FullDoesNotGrow(t *testing.T) {
	s := NewSendQueue(4)
	_ = s.Push([]byte{1, 2, 3})

	err := s.Push([]byte{4, 5})
	if !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("Push() error = %v, want ErrSendQueueFull", err)
	}
	if s.Capacity() != 4 {
		t.Errorf("Capacity() = %d, want 4", s.Capacity())
	}
	if !bytes.Equal(s.Bytes(), []byte{1, 2, 3}) {
		t.Errorf("Bytes() = %v, want [1 2 3] (unchanged)", s.Bytes())
	}
}

func TestSendQueue_Grow(t *testing.T) {
	s := NewSendQueue(4)
	_ = s.Push([]byte{1, 2, 3})

	s.Grow(2)
	if s.Capacity() != 5 {
		t.Errorf("Capacity() = %d, want 5", s.Capacity())
	}
	if err := s.Push([]byte{4, 5}); err != nil {
		t.Fatalf("Push() after Grow error = %v", err)
	}
	if !bytes.Equal(s.Bytes(), []byte{1, 2, 3, 4, 5}) {
		t.Errorf("Bytes() = %v, want [1 2 3 4 5]", s.Bytes())
	}

	s.Grow(0)
	if s.Capacity() != 5 {
		t.Errorf("Grow(0) changed capacity to %d", s.Capacity())
	}
}

func TestNewSendQueue_Default(t *testing.T) {
	if got := NewSendQueue(0).Capacity(); got != DefaultSendCapacity {
		t.Errorf("Capacity() = %d, want %d", got, DefaultSendCapacity)
	}
}
