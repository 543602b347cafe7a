package email

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@slotbook.local", "ana@example.com", "Hi", "Body line")
	for _, want := range []string{
		"From: no-reply@slotbook.local\r\n",
		"To: ana@example.com\r\n",
		"Subject: Hi\r\n",
		"\r\n\r\nBody line\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestCancellationMessage(t *testing.T) {
	date := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	subject, body := CancellationMessage("Bia", "Ana", date)
	if subject != "Appointment canceled" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "Hello Bia") {
		t.Errorf("body missing provider greeting:\n%s", body)
	}
	if !strings.Contains(body, "Ana canceled") {
		t.Errorf("body missing client name:\n%s", body)
	}
	if !strings.Contains(body, "Monday, June 3 at 14:00") {
		t.Errorf("body missing formatted date:\n%s", body)
	}
}
