package docstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 用于 DB 未就绪时的联测与单元测试
// - 按 collection 隔离
// - Subscribe 在每次写入后同步通知（无轮询延迟）
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]*Document // collection -> id -> doc

	subMu   sync.Mutex
	subSeq  int
	subs    map[string]map[int]func([]*Document) // collection -> subID -> callback
	nowFunc func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    map[string]map[string]*Document{},
		subs:    map[string]map[int]func([]*Document){},
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, filters ...Filter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0)
	for _, doc := range s.docs[collection] {
		if matchFilters(doc, filters) {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = map[string]*Document{}
	}
	existing := s.docs[collection][id]
	if merge && existing != nil {
		for k, v := range fields {
			existing.Fields[k] = v
		}
		existing.UpdatedAt = s.nowFunc()
	} else {
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		s.docs[collection][id] = &Document{ID: id, Fields: copied, UpdatedAt: s.nowFunc()}
	}
	s.mu.Unlock()

	s.notify(ctx, collection)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.docs[collection], id)
	s.mu.Unlock()

	s.notify(ctx, collection)
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, collection string, onChange func([]*Document)) (func(), error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subSeq++
	id := s.subSeq
	if s.subs[collection] == nil {
		s.subs[collection] = map[int]func([]*Document){}
	}
	s.subs[collection][id] = onChange
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs[collection], id)
	}, nil
}

func (s *MemoryStore) notify(ctx context.Context, collection string) {
	s.subMu.Lock()
	callbacks := make([]func([]*Document), 0, len(s.subs[collection]))
	for _, cb := range s.subs[collection] {
		callbacks = append(callbacks, cb)
	}
	s.subMu.Unlock()
	if len(callbacks) == 0 {
		return
	}
	docs, _ := s.Query(ctx, collection)
	for _, cb := range callbacks {
		cb(docs)
	}
}

func matchFilters(doc *Document, filters []Filter) bool {
	for _, f := range filters {
		if doc.Fields[f.Field] != f.Value {
			return false
		}
	}
	return true
}

func cloneDoc(doc *Document) *Document {
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	return &Document{ID: doc.ID, Fields: fields, UpdatedAt: doc.UpdatedAt}
}
