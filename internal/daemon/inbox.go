package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/worker"
)

// inboxSettleDelay gives the producer time to finish writing before the file
// is picked up.
const inboxSettleDelay = 500 * time.Millisecond

// parseInboxName splits "{project}__{borelog}__{upload}.csv" style names.
func parseInboxName(name string) (projectID, borelogID, uploadID, ext string, ok bool) {
	ext = strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".xlsx" {
		return "", "", "", "", false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, "__")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", "", false
	}
	return parts[0], parts[1], parts[2], ext, true
}

// startInboxWatcher watches the inbox directory and processes dropped
// documents. Files already present at startup are processed first.
func (d *Daemon) startInboxWatcher(ctx context.Context) (*fsnotify.Watcher, error) {
	dir := d.cfg.Daemon.InboxDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			d.queueInboxFile(ctx, filepath.Join(dir, entry.Name()))
		}
	}

	go d.inboxLoop(ctx, watcher)
	slog.Info("Inbox watcher running", "dir", dir)
	return watcher, nil
}

func (d *Daemon) inboxLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			path := event.Name
			mu.Lock()
			if timer, exists := pending[path]; exists {
				timer.Reset(inboxSettleDelay)
			} else {
				pending[path] = time.AfterFunc(inboxSettleDelay, func() {
					mu.Lock()
					delete(pending, path)
					mu.Unlock()
					d.queueInboxFile(ctx, path)
				})
			}
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Inbox watcher error", "error", err)
		}
	}
}

func (d *Daemon) queueInboxFile(ctx context.Context, path string) {
	if err := d.processInboxFile(ctx, path); err != nil {
		slog.Error("Inbox file failed", "path", path, "error", err)
	}
}

// processInboxFile stores the dropped document under the upload key schema
// and runs the parse job for it. The file is removed once both succeed;
// misnamed files stay in place so the operator can see them.
func (d *Daemon) processInboxFile(ctx context.Context, path string) error {
	name := filepath.Base(path)
	projectID, borelogID, uploadID, ext, ok := parseInboxName(name)
	if !ok {
		slog.Warn("Ignoring inbox file with unrecognized name", "name", name)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.KindTransport, "read inbox file %s", name)
	}

	contentType := "text/csv"
	fileType := "csv"
	if ext == ".xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		fileType = "xlsx"
	}
	key := fmt.Sprintf("projects/%s/borelogs/%s/uploads/%s/%s", projectID, borelogID, uploadID, name)
	if err := d.store.Put(ctx, key, data, contentType, true); err != nil {
		return err
	}

	result, err := d.worker.Process(ctx, &worker.Message{
		Key:       key,
		ProjectID: projectID,
		BorelogID: borelogID,
		UploadID:  uploadID,
		FileType:  fileType,
	})
	if err != nil {
		return err
	}
	slog.Info("Inbox file processed", "name", name, "status", result.Status, "strata", result.StrataCount)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not remove processed inbox file", "path", path, "error", err)
	}
	return nil
}
