// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
)

func newTestPool(cacheOn bool) *Pool {
	return NewFromFilesystem(memfs.New(), cacheOn)
}

func TestResolveRejectsUnknownFileType(t *testing.T) {
	p := newTestPool(true)
	if _, err := p.Resolve(Userland, "zlib", "1.2.11", "", "bogus"); err == nil {
		t.Fatal("expected error for unknown filetype")
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	p := newTestPool(true)
	path, err := p.Resolve(Userland, "zlib", "1.2.11", "zlib-1.2.11-r0", ALIENSRC)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := p.Write(path, []byte("hello"), Overwrite); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := p.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Read = %q, want hello", got)
	}
}

func TestWriteFailsOnExistingWithFail(t *testing.T) {
	p := newTestPool(true)
	path, _ := p.Resolve(Userland, "zlib", "1.2.11", "zlib-1.2.11-r0", ALIENSRC)
	if err := p.Write(path, []byte("a"), Overwrite); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := p.Write(path, []byte("b"), Fail); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestPrerequisiteEnforced(t *testing.T) {
	p := newTestPool(true)
	path, _ := p.Resolve(Userland, "zlib", "1.2.11", "zlib", ALIENMATCHER)
	if err := p.Write(path, []byte("{}"), Overwrite); err == nil {
		t.Fatal("expected missing-prerequisite error when ALIENSRC absent")
	}
	srcPath, _ := p.Resolve(Userland, "zlib", "1.2.11", "zlib", ALIENSRC)
	if err := p.Write(srcPath, []byte("tar"), Overwrite); err != nil {
		t.Fatalf("writing prerequisite: %v", err)
	}
	if err := p.Write(path, []byte("{}"), Overwrite); err != nil {
		t.Fatalf("Write after prerequisite satisfied: %v", err)
	}
}

func TestCachedReadHonorsIgnoreCache(t *testing.T) {
	p := newTestPool(true)
	path, _ := p.Resolve(Userland, "zlib", "1.2.11", "zlib-1.2.11-r0", ALIENSRC)
	if err := p.Write(path, []byte("data"), Overwrite); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, ok := p.CachedRead(path); !ok {
		t.Fatal("expected cache hit")
	}
	ignoring := p.WithIgnoreCache(true)
	if _, ok := ignoring.CachedRead(path); ok {
		t.Fatal("expected cache miss with ignoreCache")
	}
}

func TestWriteIfAbsentSkipsWhenCached(t *testing.T) {
	p := newTestPool(true)
	path, _ := p.Resolve(Userland, "zlib", "1.2.11", "zlib-1.2.11-r0", ALIENSRC)
	calls := 0
	produce := func() ([]byte, error) {
		calls++
		return []byte("x"), nil
	}
	written, err := p.WriteIfAbsent(path, produce)
	if err != nil || !written {
		t.Fatalf("first WriteIfAbsent: written=%v err=%v", written, err)
	}
	written, err = p.WriteIfAbsent(path, produce)
	if err != nil || written {
		t.Fatalf("second WriteIfAbsent: written=%v err=%v, want false/nil", written, err)
	}
	if calls != 1 {
		t.Fatalf("produce called %d times, want 1", calls)
	}
}

func TestGlob(t *testing.T) {
	p := newTestPool(true)
	path1, _ := p.Resolve(Userland, "zlib", "1.2.11", "zlib-1.2.11-r0", ALIENSRC)
	path2, _ := p.Resolve(Userland, "curl", "7.0", "curl-7.0", ALIENSRC)
	p.Write(path1, []byte("a"), Overwrite)
	p.Write(path2, []byte("b"), Overwrite)
	matches, err := p.Glob("userland/zlib/*/*.aliensrc")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) != 1 || matches[0] != path1 {
		t.Fatalf("Glob matches = %v, want [%s]", matches, path1)
	}
}
