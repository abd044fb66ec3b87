package memstore

import (
	"context"
	"sort"

	"github.com/Freeeeeet/medbook/internal/model"
)

type Doctors struct {
	s *Store
}

func (d *Doctors) Create(_ context.Context, doc *model.Doctor) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc.ID = d.s.id()
	doc.CreatedAt = d.s.now()
	d.s.doctors[doc.ID] = copyDoctor(*doc)
	return nil
}

func (d *Doctors) GetByID(_ context.Context, id int64) (*model.Doctor, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	doc, ok := d.s.doctors[id]
	if !ok {
		return nil, nil
	}
	doc = copyDoctor(doc)
	return &doc, nil
}

func (d *Doctors) List(_ context.Context) ([]*model.Doctor, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	out := make([]*model.Doctor, 0, len(d.s.doctors))
	for _, doc := range d.s.doctors {
		doc := copyDoctor(doc)
		out = append(out, &doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (d *Doctors) Update(_ context.Context, doc *model.Doctor) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	existing, ok := d.s.doctors[doc.ID]
	if !ok {
		return nil
	}
	updated := copyDoctor(*doc)
	updated.CreatedAt = existing.CreatedAt
	d.s.doctors[doc.ID] = updated
	return nil
}

func copyDoctor(doc model.Doctor) model.Doctor {
	if doc.TelegramChatID != nil {
		chat := *doc.TelegramChatID
		doc.TelegramChatID = &chat
	}
	return doc
}
