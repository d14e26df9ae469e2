package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/wreck/engine/core"
)

// ShaderWatcher reports compiled shaders that changed on disk below a directory.
type ShaderWatcher struct {
	fsnotify *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	wg       sync.WaitGroup

	mutex    sync.Mutex
	isClosed bool
}

func NewShaderWatcher(dir string) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &ShaderWatcher{
		fsnotify: fsWatch,
		changes:  make(chan string, 16),
		done:     make(chan struct{}),
	}
	if err := sw.watchRecursive(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}
	sw.wg.Add(1)
	go sw.start()
	return sw, nil
}

// Changes delivers the path of every .spv file that was written or created.
func (sw *ShaderWatcher) Changes() <-chan string {
	return sw.changes
}

// Drain returns every pending change without blocking.
func (sw *ShaderWatcher) Drain() []string {
	var paths []string
	for {
		select {
		case p := <-sw.changes:
			paths = append(paths, p)
		default:
			return paths
		}
	}
}

func (sw *ShaderWatcher) Close() error {
	sw.mutex.Lock()
	if sw.isClosed {
		sw.mutex.Unlock()
		return errors.New("shader watcher already closed")
	}
	sw.isClosed = true
	sw.mutex.Unlock()

	close(sw.done)
	sw.wg.Wait()
	return sw.fsnotify.Close()
}

func (sw *ShaderWatcher) start() {
	defer sw.wg.Done()
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := sw.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch `%s`: %s", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && isShaderBinary(e.Name) {
				select {
				case sw.changes <- e.Name:
				case <-sw.done:
					return
				}
			}

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-sw.done:
			return
		}
	}
}

// watchRecursive adds dir and every directory below it to the watch list.
func (sw *ShaderWatcher) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func isShaderBinary(path string) bool {
	return filepath.Ext(path) == ".spv"
}
