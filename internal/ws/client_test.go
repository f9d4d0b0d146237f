package ws

import "testing"

func TestValidateFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"empty", []byte{}, true},
		{"not JSON", []byte("hello"), true},
		{"truncated", []byte(`{"event":`), true},
		{"valid envelope", []byte(`{"event":"join","payload":{}}`), false},
		{"valid bare event", []byte(`{"event":"leave"}`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFrame(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFrame(%q) error = %v, wantErr %v", tt.data, err, tt.wantErr)
			}
		})
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	c := &Client{send: make(chan []byte, 2)}

	if err := c.Send([]byte("a")); err != nil {
		t.Fatalf("First send failed: %v", err)
	}
	if err := c.Send([]byte("b")); err != nil {
		t.Fatalf("Second send failed: %v", err)
	}

	// Buffer full: delivery is best-effort, the frame is dropped
	if err := c.Send([]byte("c")); err == nil {
		t.Error("Expected error when buffer is full")
	}

	<-c.send
	if err := c.Send([]byte("d")); err != nil {
		t.Errorf("Send after drain failed: %v", err)
	}
}
