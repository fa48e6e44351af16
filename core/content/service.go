package content

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
)

var (
	// errors
	ErrSubjectNotFound = errors.New("Subject not found")
	ErrSectionNotFound = errors.New("Section not found")
	ErrTopicNotFound   = errors.New("Topic not found")

	ErrSubjectExists = errors.New("A subject with this name already exists")
	ErrSectionExists = errors.New("A section with this name already exists in this subject")
	ErrTopicExists   = errors.New("A topic with this name already exists in this section")

	ErrSubjectHasSections = errors.New("Cannot delete subject with sections")
	ErrSectionHasTopics   = errors.New("Cannot delete section with topics")
)

// IsNotFound reports whether err is caused by a missing subject, section or topic.
func IsNotFound(err error) bool {
	switch errors.Cause(err) {
	case ErrSubjectNotFound, ErrSectionNotFound, ErrTopicNotFound:
		return true
	}
	return false
}

type (
	Repository interface {
		// QueryAllSubjects returns the whole hierarchy, every level ordered by ID.
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id int) error

		GetSection(ctx context.Context, id int) (Section, error)
		CreateSection(ctx context.Context, sect Section) (Section, error)
		UpdateSection(ctx context.Context, sect Section) (Section, error)
		DeleteSection(ctx context.Context, id int) error

		GetTopic(ctx context.Context, id int) (Topic, error)
		CreateTopic(ctx context.Context, topic Topic) (Topic, error)
		UpdateTopic(ctx context.Context, topic Topic) (Topic, error)
		DeleteTopic(ctx context.Context, id int) error
	}

	Service interface {
		QueryAll(ctx context.Context) ([]Subject, error)
		GetSubjectByName(ctx context.Context, name string) (Subject, error)

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		UpdateSubject(ctx context.Context, id int, ns NewSubject) (Subject, error)
		HasSections(ctx context.Context, id int) (bool, error)
		DeleteSubject(ctx context.Context, id int) error

		CreateSection(ctx context.Context, subjectID int, ns NewSection) (Section, error)
		UpdateSection(ctx context.Context, id int, ns NewSection) (Section, error)
		HasTopics(ctx context.Context, id int) (bool, error)
		DeleteSection(ctx context.Context, id int) error

		CreateTopic(ctx context.Context, sectionID int, nt NewTopic) (Topic, error)
		UpdateTopic(ctx context.Context, id int, nt NewTopic) (Topic, error)
		DeleteTopic(ctx context.Context, id int) error

		// Import creates the given hierarchy, skipping subjects whose name is taken.
		// It returns the number of subjects created.
		Import(ctx context.Context, subjects []Subject) (int, error)
	}

	service struct {
		repo    Repository
		nowFunc func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo, nowFunc: time.Now}
}

func (svc *service) now() time.Time {
	return svc.nowFunc().UTC()
}

func sameName(a, b string) bool {
	return strings.EqualFold(core.CleanString(a), core.CleanString(b))
}

func (svc *service) QueryAll(ctx context.Context) ([]Subject, error) {
	subjects, err := svc.repo.QueryAllSubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (svc *service) GetSubjectByName(ctx context.Context, name string) (Subject, error) {
	subjects, err := svc.QueryAll(ctx)
	if err != nil {
		return Subject{}, err
	}
	for _, subj := range subjects {
		if subj.Name == name {
			return subj, nil
		}
	}
	return Subject{}, ErrSubjectNotFound
}

func (svc *service) checkSubjectName(ctx context.Context, name string, excludedID int) error {
	subjects, err := svc.QueryAll(ctx)
	if err != nil {
		return err
	}
	for _, subj := range subjects {
		if subj.ID != excludedID && sameName(subj.Name, name) {
			return core.NewValidationError(ErrSubjectExists)
		}
	}
	return nil
}

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkSubjectName(ctx, ns.Name, 0); err != nil {
		return Subject{}, err
	}
	now := svc.now()
	subj, err := svc.repo.CreateSubject(ctx, Subject{
		Name:        ns.Name,
		Description: ns.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Sections:    []Section{},
	})
	return subj, errors.Wrap(err, "creating subject")
}

func (svc *service) UpdateSubject(ctx context.Context, id int, ns NewSubject) (Subject, error) {
	subj, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if err = svc.checkSubjectName(ctx, ns.Name, id); err != nil {
		return Subject{}, err
	}
	subj.Name = ns.Name
	subj.Description = ns.Description
	subj.UpdatedAt = svc.now()
	subj, err = svc.repo.UpdateSubject(ctx, subj)
	return subj, errors.Wrap(err, "updating subject")
}

func (svc *service) HasSections(ctx context.Context, id int) (bool, error) {
	subj, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return false, err
	}
	return len(subj.Sections) > 0, nil
}

func (svc *service) DeleteSubject(ctx context.Context, id int) error {
	hasSections, err := svc.HasSections(ctx, id)
	if err != nil {
		return err
	}
	if hasSections {
		return core.NewValidationError(ErrSubjectHasSections)
	}
	return errors.Wrap(svc.repo.DeleteSubject(ctx, id), "deleting subject")
}

func (svc *service) checkSectionName(subj Subject, name string, excludedID int) error {
	for _, sect := range subj.Sections {
		if sect.ID != excludedID && sameName(sect.Name, name) {
			return core.NewValidationError(ErrSectionExists)
		}
	}
	return nil
}

func (svc *service) CreateSection(ctx context.Context, subjectID int, ns NewSection) (Section, error) {
	subj, err := svc.repo.GetSubject(ctx, subjectID)
	if err != nil {
		return Section{}, err
	}
	if err = svc.checkSectionName(subj, ns.Name, 0); err != nil {
		return Section{}, err
	}
	now := svc.now()
	sect, err := svc.repo.CreateSection(ctx, Section{
		SubjectID: subjectID,
		Name:      ns.Name,
		CreatedAt: now,
		UpdatedAt: now,
		Topics:    []Topic{},
	})
	return sect, errors.Wrap(err, "creating section")
}

func (svc *service) UpdateSection(ctx context.Context, id int, ns NewSection) (Section, error) {
	sect, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return Section{}, err
	}
	subj, err := svc.repo.GetSubject(ctx, sect.SubjectID)
	if err != nil {
		return Section{}, err
	}
	if err = svc.checkSectionName(subj, ns.Name, id); err != nil {
		return Section{}, err
	}
	sect.Name = ns.Name
	sect.UpdatedAt = svc.now()
	sect, err = svc.repo.UpdateSection(ctx, sect)
	return sect, errors.Wrap(err, "updating section")
}

func (svc *service) HasTopics(ctx context.Context, id int) (bool, error) {
	sect, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return false, err
	}
	return len(sect.Topics) > 0, nil
}

func (svc *service) DeleteSection(ctx context.Context, id int) error {
	hasTopics, err := svc.HasTopics(ctx, id)
	if err != nil {
		return err
	}
	if hasTopics {
		return core.NewValidationError(ErrSectionHasTopics)
	}
	return errors.Wrap(svc.repo.DeleteSection(ctx, id), "deleting section")
}

func (svc *service) checkTopicName(sect Section, name string, excludedID int) error {
	for _, topic := range sect.Topics {
		if topic.ID != excludedID && sameName(topic.Name, name) {
			return core.NewValidationError(ErrTopicExists)
		}
	}
	return nil
}

func (svc *service) CreateTopic(ctx context.Context, sectionID int, nt NewTopic) (Topic, error) {
	sect, err := svc.repo.GetSection(ctx, sectionID)
	if err != nil {
		return Topic{}, err
	}
	if err = svc.checkTopicName(sect, nt.Name, 0); err != nil {
		return Topic{}, err
	}
	now := svc.now()
	topic, err := svc.repo.CreateTopic(ctx, Topic{
		SectionID: sectionID,
		Name:      nt.Name,
		CreatedAt: now,
		UpdatedAt: now,
		Details:   TopicDetails{Text: nt.Text, Code: nt.Code},
	})
	return topic, errors.Wrap(err, "creating topic")
}

func (svc *service) UpdateTopic(ctx context.Context, id int, nt NewTopic) (Topic, error) {
	topic, err := svc.repo.GetTopic(ctx, id)
	if err != nil {
		return Topic{}, err
	}
	sect, err := svc.repo.GetSection(ctx, topic.SectionID)
	if err != nil {
		return Topic{}, err
	}
	if err = svc.checkTopicName(sect, nt.Name, id); err != nil {
		return Topic{}, err
	}
	topic.Name = nt.Name
	topic.Details.Text = nt.Text
	topic.Details.Code = nt.Code
	topic.UpdatedAt = svc.now()
	topic, err = svc.repo.UpdateTopic(ctx, topic)
	return topic, errors.Wrap(err, "updating topic")
}

func (svc *service) DeleteTopic(ctx context.Context, id int) error {
	return errors.Wrap(svc.repo.DeleteTopic(ctx, id), "deleting topic")
}

func (svc *service) Import(ctx context.Context, subjects []Subject) (int, error) {
	var created int
	for _, in := range subjects {
		ns := NewSubject{Name: core.CleanString(in.Name), Description: core.CleanString(in.Description)}
		if ns.Name == "" {
			continue
		}
		subj, err := svc.CreateSubject(ctx, ns)
		if err != nil {
			if errors.Cause(err) != ErrSubjectExists && !core.IsValidationError(err) {
				return created, err
			}
			continue
		}
		created++

		for _, inSect := range in.Sections {
			sect, err := svc.CreateSection(ctx, subj.ID, NewSection{Name: core.CleanString(inSect.Name)})
			if err != nil {
				if core.IsValidationError(err) {
					continue
				}
				return created, errors.Wrapf(err, "importing section %q", inSect.Name)
			}
			for _, inTopic := range inSect.Topics {
				if err := svc.importTopic(ctx, sect.ID, inTopic); err != nil {
					return created, errors.Wrapf(err, "importing topic %q", inTopic.Name)
				}
			}
		}
	}
	return created, nil
}

func (svc *service) importTopic(ctx context.Context, sectionID int, in Topic) error {
	topic, err := svc.CreateTopic(ctx, sectionID, NewTopic{
		Name: core.CleanString(in.Name),
		Text: in.Details.Text,
		Code: in.Details.Code,
	})
	if err != nil {
		if core.IsValidationError(err) {
			return nil
		}
		return err
	}
	if in.Details.Table == nil && in.Details.Image == "" {
		return nil
	}
	// tables & images only come in through imports
	topic.Details.Table = in.Details.Table
	topic.Details.Image = in.Details.Image
	_, err = svc.repo.UpdateTopic(ctx, topic)
	return err
}
