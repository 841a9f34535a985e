package commandstructure

import (
	"errors"
	"reflect"
	"testing"
)

type stubCommand struct {
	name string
}

func (s *stubCommand) Name() string { return s.name }

func (s *stubCommand) Execute(imageData []byte) ([]byte, error) { return imageData, nil }

func stubFactory(name string) CommandFactory {
	return func(params map[string]any) (Command, error) {
		return &stubCommand{name: name}, nil
	}
}

func TestCommandRegistry_Register(t *testing.T) {
	registry := NewCommandRegistry()

	if err := registry.Register("StubCommand", stubFactory("StubCommand")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		name        string
		commandName string
		factory     CommandFactory
	}{
		{name: "duplicate name", commandName: "StubCommand", factory: stubFactory("StubCommand")},
		{name: "empty name", commandName: "", factory: stubFactory("")},
		{name: "nil factory", commandName: "NilFactory", factory: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := registry.Register(tt.commandName, tt.factory); err == nil {
				t.Error("Expected registration error, got nil")
			}
		})
	}
}

func TestCommandRegistry_Create(t *testing.T) {
	registry := NewCommandRegistry()
	_ = registry.Register("StubCommand", stubFactory("StubCommand"))

	command, err := registry.Create("StubCommand", map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if command.Name() != "StubCommand" {
		t.Errorf("Expected name 'StubCommand', got '%s'", command.Name())
	}

	if _, err := registry.Create("Missing", nil); err == nil {
		t.Error("Expected error for unknown command")
	}
}

func TestCommandRegistry_Create_FactoryError(t *testing.T) {
	registry := NewCommandRegistry()
	factoryErr := errors.New("bad params")
	_ = registry.Register("Broken", func(params map[string]any) (Command, error) {
		return nil, factoryErr
	})

	_, err := registry.Create("Broken", nil)
	if !errors.Is(err, factoryErr) {
		t.Fatalf("Expected wrapped factory error, got %v", err)
	}
}

func TestCommandRegistry_GetRegisteredNames(t *testing.T) {
	registry := NewCommandRegistry()
	_ = registry.Register("b", stubFactory("b"))
	_ = registry.Register("a", stubFactory("a"))

	got := registry.GetRegisteredNames()
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}
	if !registry.IsRegistered("a") || registry.IsRegistered("c") {
		t.Error("IsRegistered returned unexpected result")
	}
}
