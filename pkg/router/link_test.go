package router

import (
	"testing"
)

func TestShouldIntercept(t *testing.T) {
	tests := []struct {
		name string
		ev   ClickEvent
		want bool
	}{
		{"plain click", ClickEvent{}, true},
		{"enter key", ClickEvent{Key: "Enter"}, true},
		{"space key", ClickEvent{Key: " "}, false},
		{"middle button", ClickEvent{Button: 1}, false},
		{"ctrl", ClickEvent{Ctrl: true}, false},
		{"meta", ClickEvent{Meta: true}, false},
		{"shift", ClickEvent{Shift: true}, false},
		{"alt", ClickEvent{Alt: true}, false},
		{"prevented", ClickEvent{DefaultPrevented: true}, false},
		{"content editable", ClickEvent{IsContentEditable: true}, false},
		{"download", ClickEvent{Download: true}, false},
		{"target blank", ClickEvent{Target: "_blank"}, false},
		{"target self", ClickEvent{Target: "_self"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldIntercept(tt.ev); got != tt.want {
				t.Errorf("ShouldIntercept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouterShouldIntercept(t *testing.T) {
	r, _ := funcRouter(t, echoTransport)
	tests := []struct {
		href string
		want bool
	}{
		{"/users", true},
		{"https://app.test/users?page=2", true},
		{"https://other.test/", false},
		{"#section", false},
		{"/home#section", false},
	}
	for _, tt := range tests {
		if got := r.ShouldIntercept(ClickEvent{Href: tt.href}); got != tt.want {
			t.Errorf("ShouldIntercept(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}
