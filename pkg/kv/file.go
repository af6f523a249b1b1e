package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
)

// File is a Store backed by a single JSON object on disk. Every call
// re-reads the file under an advisory lock so separate processes sharing
// the path observe each other's writes. Writes go through a temp file and
// rename so the file is never left half written.
type File struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFile opens (without creating) a file store at path, creating the
// parent directory if needed.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(path), err)
	}
	return &File{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get implements Store.
func (f *File) Get(key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := f.withLock(false, func() error {
		values, err := f.load()
		if err != nil {
			return err
		}
		value, ok = values[key]
		return nil
	})
	return value, ok, err
}

// Set implements Store.
func (f *File) Set(key, value string) error {
	return f.withLock(true, func() error {
		values, err := f.load()
		if err != nil {
			return err
		}
		values[key] = value
		return f.save(values)
	})
}

// Contains implements Store.
func (f *File) Contains(key string) (bool, error) {
	_, ok, err := f.Get(key)
	return ok, err
}

// Delete implements Store.
func (f *File) Delete(key string) error {
	return f.withLock(true, func() error {
		values, err := f.load()
		if err != nil {
			return err
		}
		if _, ok := values[key]; !ok {
			return nil
		}
		delete(values, key)
		return f.save(values)
	})
}

func (f *File) withLock(exclusive bool, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lockFn := f.lock.RLock
	if exclusive {
		lockFn = f.lock.Lock
	}
	if err := lockFn(); err != nil {
		return errors.WrapIO("lock", f.lock.Path(), err)
	}
	defer func() { _ = f.lock.Unlock() }()

	return fn()
}

// load reads the current contents. A missing file is an empty store.
func (f *File) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", f.path, err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.WrapParse("json", f.path, err)
	}
	return values, nil
}

func (f *File) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.WrapParse("json", f.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), fmt.Sprintf(".%s-*", filepath.Base(f.path)))
	if err != nil {
		return errors.WrapIO("create", f.path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.WrapIO("rename", f.path, err)
	}
	return nil
}
