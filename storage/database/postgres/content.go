package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/content"
)

type (
	subjectRow struct {
		ID          int         `db:"id"`
		Name        string      `db:"name"`
		Description null.String `db:"description"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	sectionRow struct {
		ID        int       `db:"id"`
		SubjectID int       `db:"subject_id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	topicRow struct {
		ID          int         `db:"id"`
		SectionID   int         `db:"section_id"`
		Name        string      `db:"name"`
		TextContent null.String `db:"text_content"`
		Code        null.String `db:"code"`
		TableData   null.JSON   `db:"table_data"`
		Image       null.String `db:"image"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}
)

func (r subjectRow) toSubject() content.Subject {
	return content.Subject{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		Sections:    []content.Section{},
	}
}

func (r sectionRow) toSection() content.Section {
	return content.Section{
		ID:        r.ID,
		SubjectID: r.SubjectID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Topics:    []content.Topic{},
	}
}

func (r topicRow) toTopic() (content.Topic, error) {
	topic := content.Topic{
		ID:        r.ID,
		SectionID: r.SectionID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Details: content.TopicDetails{
			Text:  r.TextContent.String,
			Code:  r.Code.String,
			Image: r.Image.String,
		},
	}
	if r.TableData.Valid {
		var tbl content.Table
		if err := r.TableData.Unmarshal(&tbl); err != nil {
			return content.Topic{}, errors.Wrapf(err, "decoding table of topic %d", r.ID)
		}
		topic.Details.Table = &tbl
	}
	return topic, nil
}

func newTopicRow(topic content.Topic) (topicRow, error) {
	row := topicRow{
		ID:          topic.ID,
		SectionID:   topic.SectionID,
		Name:        topic.Name,
		TextContent: null.NewString(topic.Details.Text, topic.Details.Text != ""),
		Code:        null.NewString(topic.Details.Code, topic.Details.Code != ""),
		Image:       null.NewString(topic.Details.Image, topic.Details.Image != ""),
		CreatedAt:   topic.CreatedAt,
		UpdatedAt:   topic.UpdatedAt,
	}
	if topic.Details.Table != nil {
		if err := row.TableData.Marshal(topic.Details.Table); err != nil {
			return topicRow{}, errors.Wrap(err, "encoding topic table")
		}
	}
	return row, nil
}

const (
	subjectCols = "id, name, description, created_at, updated_at"
	sectionCols = "id, subject_id, name, created_at, updated_at"
	topicCols   = "id, section_id, name, text_content, code, table_data, image, created_at, updated_at"
)

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *sqlx.DB) content.Repository {
	return &contentRepository{db: db}
}

// translateErr maps unique index violations to the matching domain errors.
func translateErr(err error) error {
	if err == sql.ErrNoRows {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "subject_name_uniq":
			return core.NewValidationError(content.ErrSubjectExists)
		case "section_name_uniq":
			return core.NewValidationError(content.ErrSectionExists)
		case "topic_name_uniq":
			return core.NewValidationError(content.ErrTopicExists)
		}
	}
	// ON DELETE RESTRICT
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "section_subject_id_fkey":
			return core.NewValidationError(content.ErrSubjectHasSections)
		case "topic_section_id_fkey":
			return core.NewValidationError(content.ErrSectionHasTopics)
		}
	}
	return err
}

func notFound(err error, notFoundErr error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFoundErr
	}
	return err
}

func (repo *contentRepository) topics(ctx context.Context, db core.DBExecutor, where string, args ...interface{}) ([]content.Topic, error) {
	var rows []topicRow
	q := "SELECT " + topicCols + " FROM topic " + where + " ORDER BY " + core.DBOrdering{Field: "id", Ascending: true}.String()
	if err := db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting topics")
	}
	topics := make([]content.Topic, 0, len(rows))
	for _, row := range rows {
		topic, err := row.toTopic()
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func (repo *contentRepository) sections(ctx context.Context, db core.DBExecutor, where string, args ...interface{}) ([]content.Section, error) {
	var rows []sectionRow
	q := "SELECT " + sectionCols + " FROM section " + where + " ORDER BY id ASC"
	if err := db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting sections")
	}
	sections := make([]content.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, row.toSection())
	}
	return sections, nil
}

// attach nests topics into sections and sections into subjects, keeping the ID order.
func attach(subjects []content.Subject, sections []content.Section, topics []content.Topic) {
	sectIdx := make(map[int]int, len(sections))
	for i, sect := range sections {
		sectIdx[sect.ID] = i
	}
	for _, topic := range topics {
		if i, ok := sectIdx[topic.SectionID]; ok {
			sections[i].Topics = append(sections[i].Topics, topic)
		}
	}
	subjIdx := make(map[int]int, len(subjects))
	for i, subj := range subjects {
		subjIdx[subj.ID] = i
	}
	for _, sect := range sections {
		if i, ok := subjIdx[sect.SubjectID]; ok {
			subjects[i].Sections = append(subjects[i].Sections, sect)
		}
	}
}

func (repo *contentRepository) QueryAllSubjects(ctx context.Context) ([]content.Subject, error) {
	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	var rows []subjectRow
	if err = tx.SelectContext(ctx, &rows, "SELECT "+subjectCols+" FROM subject ORDER BY id ASC"); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	sections, err := repo.sections(ctx, tx, "")
	if err != nil {
		return nil, err
	}
	topics, err := repo.topics(ctx, tx, "")
	if err != nil {
		return nil, err
	}

	subjects := make([]content.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.toSubject())
	}
	attach(subjects, sections, topics)
	return subjects, nil
}

func (repo *contentRepository) GetSubject(ctx context.Context, id int) (content.Subject, error) {
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+subjectCols+" FROM subject WHERE id = $1", id); err != nil {
		return content.Subject{}, notFound(err, content.ErrSubjectNotFound)
	}
	sections, err := repo.sections(ctx, repo.db, "WHERE subject_id = $1", id)
	if err != nil {
		return content.Subject{}, err
	}
	topics, err := repo.topics(ctx, repo.db, "WHERE section_id IN (SELECT id FROM section WHERE subject_id = $1)", id)
	if err != nil {
		return content.Subject{}, err
	}
	subjects := []content.Subject{row.toSubject()}
	attach(subjects, sections, topics)
	return subjects[0], nil
}

func (repo *contentRepository) CreateSubject(ctx context.Context, subj content.Subject) (content.Subject, error) {
	row := subjectRow{
		Name:        subj.Name,
		Description: null.NewString(subj.Description, subj.Description != ""),
		CreatedAt:   subj.CreatedAt,
		UpdatedAt:   subj.UpdatedAt,
	}
	q := `INSERT INTO subject (name, description, created_at, updated_at)
		VALUES (:name, :description, :created_at, :updated_at) RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return content.Subject{}, errors.Wrap(err, "preparing insert")
	}
	defer func() { _ = stmt.Close() }()
	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return content.Subject{}, translateErr(err)
	}
	return row.toSubject(), nil
}

func (repo *contentRepository) UpdateSubject(ctx context.Context, subj content.Subject) (content.Subject, error) {
	q := "UPDATE subject SET name = $1, description = $2, updated_at = $3 WHERE id = $4"
	res, err := repo.db.ExecContext(ctx, q, subj.Name, null.NewString(subj.Description, subj.Description != ""), subj.UpdatedAt, subj.ID)
	if err != nil {
		return content.Subject{}, translateErr(err)
	}
	if err = affected(res, content.ErrSubjectNotFound); err != nil {
		return content.Subject{}, err
	}
	return repo.GetSubject(ctx, subj.ID)
}

func (repo *contentRepository) DeleteSubject(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM subject WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(translateErr(err), "deleting subject")
	}
	return affected(res, content.ErrSubjectNotFound)
}

func (repo *contentRepository) GetSection(ctx context.Context, id int) (content.Section, error) {
	var row sectionRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+sectionCols+" FROM section WHERE id = $1", id); err != nil {
		return content.Section{}, notFound(err, content.ErrSectionNotFound)
	}
	sect := row.toSection()
	topics, err := repo.topics(ctx, repo.db, "WHERE section_id = $1", id)
	if err != nil {
		return content.Section{}, err
	}
	sect.Topics = topics
	return sect, nil
}

func (repo *contentRepository) CreateSection(ctx context.Context, sect content.Section) (content.Section, error) {
	row := sectionRow{SubjectID: sect.SubjectID, Name: sect.Name, CreatedAt: sect.CreatedAt, UpdatedAt: sect.UpdatedAt}
	q := "INSERT INTO section (subject_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id"
	if err := repo.db.GetContext(ctx, &row.ID, q, row.SubjectID, row.Name, row.CreatedAt, row.UpdatedAt); err != nil {
		return content.Section{}, translateErr(err)
	}
	return row.toSection(), nil
}

func (repo *contentRepository) UpdateSection(ctx context.Context, sect content.Section) (content.Section, error) {
	res, err := repo.db.ExecContext(ctx, "UPDATE section SET name = $1, updated_at = $2 WHERE id = $3", sect.Name, sect.UpdatedAt, sect.ID)
	if err != nil {
		return content.Section{}, translateErr(err)
	}
	if err = affected(res, content.ErrSectionNotFound); err != nil {
		return content.Section{}, err
	}
	return repo.GetSection(ctx, sect.ID)
}

func (repo *contentRepository) DeleteSection(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM section WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(translateErr(err), "deleting section")
	}
	return affected(res, content.ErrSectionNotFound)
}

func (repo *contentRepository) GetTopic(ctx context.Context, id int) (content.Topic, error) {
	var row topicRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+topicCols+" FROM topic WHERE id = $1", id); err != nil {
		return content.Topic{}, notFound(err, content.ErrTopicNotFound)
	}
	return row.toTopic()
}

func (repo *contentRepository) CreateTopic(ctx context.Context, topic content.Topic) (content.Topic, error) {
	row, err := newTopicRow(topic)
	if err != nil {
		return content.Topic{}, err
	}
	q := `INSERT INTO topic (section_id, name, text_content, code, table_data, image, created_at, updated_at)
		VALUES (:section_id, :name, :text_content, :code, :table_data, :image, :created_at, :updated_at) RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return content.Topic{}, errors.Wrap(err, "preparing insert")
	}
	defer func() { _ = stmt.Close() }()
	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return content.Topic{}, translateErr(err)
	}
	return row.toTopic()
}

func (repo *contentRepository) UpdateTopic(ctx context.Context, topic content.Topic) (content.Topic, error) {
	row, err := newTopicRow(topic)
	if err != nil {
		return content.Topic{}, err
	}
	q := `UPDATE topic SET name = :name, text_content = :text_content, code = :code,
		table_data = :table_data, image = :image, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return content.Topic{}, translateErr(err)
	}
	if err = affected(res, content.ErrTopicNotFound); err != nil {
		return content.Topic{}, err
	}
	return repo.GetTopic(ctx, topic.ID)
}

func (repo *contentRepository) DeleteTopic(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM topic WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting topic")
	}
	return affected(res, content.ErrTopicNotFound)
}

func affected(res sql.Result, notFoundErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}
