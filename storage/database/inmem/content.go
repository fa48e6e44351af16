package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/content"
)

type contentRepository struct {
	db *DB
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{db: db}
}

// the following helpers expect the caller to hold the lock

func (repo *contentRepository) topicsOf(sectionID int) []content.Topic {
	topics := make([]content.Topic, 0)
	for _, t := range repo.db.topics {
		if t.SectionID == sectionID {
			topics = append(topics, *t)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics
}

func (repo *contentRepository) section(id int) (content.Section, bool) {
	sect, ok := repo.db.sections[id]
	if !ok {
		return content.Section{}, false
	}
	s := *sect
	s.Topics = repo.topicsOf(id)
	return s, true
}

func (repo *contentRepository) sectionsOf(subjectID int) []content.Section {
	sections := make([]content.Section, 0)
	for id, s := range repo.db.sections {
		if s.SubjectID == subjectID {
			sect, _ := repo.section(id)
			sections = append(sections, sect)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].ID < sections[j].ID })
	return sections
}

func (repo *contentRepository) subject(id int) (content.Subject, bool) {
	subj, ok := repo.db.subjects[id]
	if !ok {
		return content.Subject{}, false
	}
	s := *subj
	s.Sections = repo.sectionsOf(id)
	return s, true
}

func (repo *contentRepository) QueryAllSubjects(ctx context.Context) ([]content.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]content.Subject, 0, len(repo.db.subjects))
	for id := range repo.db.subjects {
		subj, _ := repo.subject(id)
		subjects = append(subjects, subj)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

func (repo *contentRepository) GetSubject(ctx context.Context, id int) (content.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if subj, ok := repo.subject(id); ok {
		return subj, nil
	}
	return content.Subject{}, content.ErrSubjectNotFound
}

func (repo *contentRepository) CreateSubject(ctx context.Context, subj content.Subject) (content.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.subjectPK++
	subj.ID = repo.db.subjectPK
	subj.TempID = ""
	subj.Sections = nil
	repo.db.subjects[subj.ID] = &subj

	created, _ := repo.subject(subj.ID)
	return created, nil
}

func (repo *contentRepository) UpdateSubject(ctx context.Context, subj content.Subject) (content.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.subjects[subj.ID]
	if !ok {
		return content.Subject{}, content.ErrSubjectNotFound
	}
	orig.Name = subj.Name
	orig.Description = subj.Description
	orig.UpdatedAt = subj.UpdatedAt

	updated, _ := repo.subject(subj.ID)
	return updated, nil
}

func (repo *contentRepository) DeleteSubject(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return content.ErrSubjectNotFound
	}
	for _, s := range repo.db.sections {
		if s.SubjectID == id {
			return core.NewValidationError(content.ErrSubjectHasSections)
		}
	}
	delete(repo.db.subjects, id)
	return nil
}

func (repo *contentRepository) GetSection(ctx context.Context, id int) (content.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sect, ok := repo.section(id); ok {
		return sect, nil
	}
	return content.Section{}, content.ErrSectionNotFound
}

func (repo *contentRepository) CreateSection(ctx context.Context, sect content.Section) (content.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[sect.SubjectID]; !ok {
		return content.Section{}, content.ErrSubjectNotFound
	}
	repo.db.sectionPK++
	sect.ID = repo.db.sectionPK
	sect.Topics = nil
	repo.db.sections[sect.ID] = &sect

	created, _ := repo.section(sect.ID)
	return created, nil
}

func (repo *contentRepository) UpdateSection(ctx context.Context, sect content.Section) (content.Section, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.sections[sect.ID]
	if !ok {
		return content.Section{}, content.ErrSectionNotFound
	}
	orig.Name = sect.Name
	orig.UpdatedAt = sect.UpdatedAt

	updated, _ := repo.section(sect.ID)
	return updated, nil
}

func (repo *contentRepository) DeleteSection(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sections[id]; !ok {
		return content.ErrSectionNotFound
	}
	for _, t := range repo.db.topics {
		if t.SectionID == id {
			return core.NewValidationError(content.ErrSectionHasTopics)
		}
	}
	delete(repo.db.sections, id)
	return nil
}

func (repo *contentRepository) GetTopic(ctx context.Context, id int) (content.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if topic, ok := repo.db.topics[id]; ok {
		return *topic, nil
	}
	return content.Topic{}, content.ErrTopicNotFound
}

func (repo *contentRepository) CreateTopic(ctx context.Context, topic content.Topic) (content.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sections[topic.SectionID]; !ok {
		return content.Topic{}, content.ErrSectionNotFound
	}
	repo.db.topicPK++
	topic.ID = repo.db.topicPK
	repo.db.topics[topic.ID] = &topic
	return topic, nil
}

func (repo *contentRepository) UpdateTopic(ctx context.Context, topic content.Topic) (content.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.topics[topic.ID]
	if !ok {
		return content.Topic{}, content.ErrTopicNotFound
	}
	orig.Name = topic.Name
	orig.Details = topic.Details
	orig.UpdatedAt = topic.UpdatedAt
	return *orig, nil
}

func (repo *contentRepository) DeleteTopic(ctx context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.topics[id]; !ok {
		return content.ErrTopicNotFound
	}
	delete(repo.db.topics, id)
	return nil
}
