package production

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/workflow"

	"github.com/google/uuid"
)

// Storage is the deliverable store: bytes at a path in, durable URL out.
// Writing the same path twice overwrites.
type Storage interface {
	Put(ctx context.Context, bucket, path string, body io.Reader, contentType string) (string, error)
}

// Remover is implemented by stores that can delete objects. When available
// it is used to drop the files of a batch that never reached the ledger.
type Remover interface {
	Remove(bucket string, paths ...string) error
}

// Upload is one file submitted by the admin.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
	FileType    string
	Label       string
}

var uploadFolder = map[workflow.Action]string{
	workflow.ActionUploadDemos:    "demos",
	workflow.ActionUploadRevision: "revisions",
	workflow.ActionDeliverVersion: "revisions",
	workflow.ActionAddDeliverable: "deliverables",
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadAndTransition stores every file first and only then runs the
// transition with their URLs. If storage fails no ledger row is written.
func (s *Service) UploadAndTransition(ctx context.Context, orderID string, actor Actor, action workflow.Action, files []Upload, p workflow.Payload) (*orders.Order, error) {
	folder, ok := uploadFolder[action]
	if !ok {
		return nil, orders.Errorf(orders.ErrValidation, "%s does not take files", action)
	}
	if len(files) == 0 {
		return nil, orders.Errorf(orders.ErrValidation, "at least one file is required")
	}

	// fail fast so rejected actions do not leave files behind
	o, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	rule, err := workflow.Lookup(o.Kind, o.Status, action, actor.Role)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot(s.db.WithContext(ctx), o)
	if err != nil {
		return nil, err
	}
	pre := p
	pre.Files = make([]workflow.FileRef, len(files))
	for i, f := range files {
		pre.Files[i] = workflow.FileRef{URL: "pending", Name: f.Name}
	}
	if err := rule.Check(snap, pre); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, orders.Wrap(orders.ErrUploadFailed, errStorageMissing)
	}

	refs := make([]workflow.FileRef, 0, len(files))
	keys := make([]string, 0, len(files))
	for _, f := range files {
		name := cleanFileName(f.Name)
		key := path.Join(o.OrderNumber, folder, uuid.NewString()[:8]+"-"+name)
		url, err := s.storage.Put(ctx, s.cfg.Bucket, key, f.Body, f.ContentType)
		s.metrics.Upload(folder, err)
		if err != nil {
			s.log.Error("upload failed", "order", o.OrderNumber, "file", name, "error", err)
			s.discard(o.OrderNumber, keys)
			return nil, orders.Wrap(orders.ErrUploadFailed, err)
		}
		keys = append(keys, key)
		refs = append(refs, workflow.FileRef{URL: url, Name: name, FileType: f.FileType, Label: f.Label})
	}
	p.Files = refs

	out, err := s.Transition(ctx, orderID, actor, action, p)
	if err != nil {
		s.discard(o.OrderNumber, keys)
		return nil, err
	}
	return out, nil
}

// discard removes stored objects that no ledger row points at.
func (s *Service) discard(orderNumber string, keys []string) {
	r, ok := s.storage.(Remover)
	if !ok || len(keys) == 0 {
		return
	}
	if err := r.Remove(s.cfg.Bucket, keys...); err != nil {
		s.log.Warn("could not remove orphaned uploads", "order", orderNumber, "files", len(keys), "error", err)
	}
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

var errStorageMissing = errors.New("storage not configured")
