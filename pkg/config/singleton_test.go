package config

import (
	"sync"
	"testing"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	SetConfig(nil)
	initOnce = sync.Once{}
	t.Cleanup(func() {
		SetConfig(nil)
		initOnce = sync.Once{}
	})
}

func TestInitialize(t *testing.T) {
	resetGlobal(t)

	path := writeConfig(t, "storage:\n  backend: memory\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("GetConfig() = nil after Initialize")
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("storage.backend = %q, want memory", cfg.Storage.Backend)
	}
}

func TestInitialize_OnlyFirstCallApplies(t *testing.T) {
	resetGlobal(t)

	first := writeConfig(t, "storage:\n  backend: memory\n")
	second := writeConfig(t, "storage:\n  backend: file\n")

	if err := Initialize(first); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := Initialize(second); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if got := GetConfig().Storage.Backend; got != "memory" {
		t.Errorf("storage.backend = %q, want memory from the first call", got)
	}
}

func TestInitialize_Error(t *testing.T) {
	resetGlobal(t)

	if err := Initialize(writeConfig(t, "batch:\n  workers: -1\n")); err == nil {
		t.Fatal("Initialize() error = nil, want validation error")
	}
	if GetConfig() != nil {
		t.Error("GetConfig() should stay nil after a failed Initialize")
	}
}

func TestReloadConfig(t *testing.T) {
	resetGlobal(t)

	SetConfig(Default())
	if err := ReloadConfig(writeConfig(t, "storage:\n  backend: file\n")); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if got := GetConfig().Storage.Backend; got != "file" {
		t.Errorf("storage.backend = %q, want file", got)
	}

	if err := ReloadConfig(writeConfig(t, "storage:\n  backend: tape\n")); err == nil {
		t.Fatal("ReloadConfig() error = nil, want error")
	}
	if got := GetConfig().Storage.Backend; got != "file" {
		t.Errorf("storage.backend = %q, want unchanged after failed reload", got)
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	resetGlobal(t)

	defer func() {
		if r := recover(); r == nil {
			t.Error("MustGetConfig() did not panic")
		}
	}()
	MustGetConfig()
}

func TestGetConfig_Concurrent(t *testing.T) {
	resetGlobal(t)
	SetConfig(Default())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if GetConfig() == nil {
				t.Error("GetConfig() = nil")
			}
		}()
	}
	wg.Wait()
}
