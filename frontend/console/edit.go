package console

import (
	"context"
	"html/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/frontend/dialog"
	"github.com/trezcool/syllabus/frontend/dom"
	"github.com/trezcool/syllabus/frontend/gateway"
	"github.com/trezcool/syllabus/frontend/render"
)

const (
	logoutPrompt = "Are you sure you want to logout?"

	newSectionTitle = "New Section"
	newTopicTitle   = "New Topic"
)

var (
	ErrTransient = errors.New("subject is not saved yet")

	deletePrompts = map[content.Kind]string{
		content.KindSubject: "Are you sure you want to delete this subject?",
		content.KindSection: "Are you sure you want to delete this section?",
		content.KindTopic:   "Are you sure you want to delete this topic?",
	}
)

// committed returns the last saved input values of the entity. A transient subject has none.
func (c *Console) committed(ref dom.Ref) map[string]string {
	switch ref.Kind {
	case content.KindSubject:
		subj := c.subjects[ref.Key]
		return map[string]string{"name": subj.Name, "description": subj.Description}
	case content.KindSection:
		return map[string]string{"name": c.sections[ref.Key].Name}
	case content.KindTopic:
		topic := c.topics[ref.Key]
		return map[string]string{"name": topic.Name, "text": topic.Details.Text, "code": topic.Details.Code}
	}
	return nil
}

func (c *Console) isTransient(ref dom.Ref) bool {
	return ref.Kind == content.KindSubject && c.subjects[ref.Key].IsTransient()
}

func (c *Console) resetFields(ref dom.Ref) error {
	for name, value := range c.committed(ref) {
		if err := c.doc.SetField(ref, name, value); err != nil {
			return err
		}
	}
	return nil
}

// fail shows err inline on ref and returns it.
func (c *Console) fail(ref dom.Ref, err error) error {
	if setErr := c.doc.SetError(ref, gateway.Message(err)); setErr != nil {
		c.logger.Warn("showing inline error", setErr, map[string]interface{}{"entity": ref.String()})
	}
	return err
}

func (c *Console) BeginEdit(ctx context.Context, ref dom.Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	return c.beginEdit(ctx, ref)
}

func (c *Console) beginEdit(_ context.Context, ref dom.Ref) error {
	mode, err := c.doc.Mode(ref)
	if err != nil {
		return err
	}
	if mode == dom.Editing {
		return nil
	}
	if err = c.resetFields(ref); err != nil {
		return err
	}
	c.doc.ClearError(ref)
	return c.doc.SetMode(ref, dom.Editing)
}

// Input types value into an edit input of the entity.
func (c *Console) Input(ref dom.Ref, field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	return c.doc.SetField(ref, field, value)
}

func (c *Console) ApplyEdit(ctx context.Context, ref dom.Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	return c.applyEdit(ctx, ref)
}

func (c *Console) fields(ref dom.Ref, names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	for _, name := range names {
		v, err := c.doc.Field(ref, name)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

// requireName is the only check done before calling the API.
func (c *Console) requireName(kind content.Kind, name string) error {
	if err := c.validate.Var(name, "notblank"); err != nil {
		return core.NewValidationError(errors.New(content.NameRequiredMessage(kind)))
	}
	return nil
}

func (c *Console) applyEdit(ctx context.Context, ref dom.Ref) error {
	mode, err := c.doc.Mode(ref)
	if err != nil {
		return err
	}
	if mode != dom.Editing {
		return nil
	}

	var names []string
	switch ref.Kind {
	case content.KindSubject:
		names = []string{"name", "description"}
	case content.KindTopic:
		names = []string{"name", "text", "code"}
	default:
		names = []string{"name"}
	}
	values, err := c.fields(ref, names...)
	if err != nil {
		return err
	}
	if err = c.requireName(ref.Kind, values["name"]); err != nil {
		return c.fail(ref, err)
	}
	c.doc.ClearError(ref)

	switch ref.Kind {
	case content.KindSubject:
		return c.applySubject(ctx, ref, values)
	case content.KindSection:
		return c.applySection(ctx, ref, values)
	case content.KindTopic:
		return c.applyTopic(ctx, ref, values)
	}
	return errors.Wrapf(ErrUnknownEvent, "apply on %s", ref)
}

func (c *Console) applySubject(ctx context.Context, ref dom.Ref, values map[string]string) error {
	name, desc := core.CleanString(values["name"]), core.CleanString(values["description"])

	if c.isTransient(ref) {
		subj, err := c.api.CreateSubject(ctx, name, desc)
		if err != nil {
			return c.fail(ref, err)
		}
		html, err := c.render.Subject(subj)
		if err != nil {
			return c.fail(ref, err)
		}
		if err = c.doc.Replace(ref, html); err != nil {
			return err
		}
		delete(c.subjects, ref.Key)
		c.commitSubject(subj)
		return nil
	}

	id, err := entityID(ref)
	if err != nil {
		return err
	}
	if err = c.api.UpdateSubject(ctx, id, name, desc); err != nil {
		return c.fail(ref, err)
	}
	subj := c.subjects[ref.Key]
	subj.Name, subj.Description = name, desc
	c.subjects[ref.Key] = subj

	if desc == "" {
		desc = render.NoDescriptionText
	}
	if err = c.doc.SetDisplayText(ref, "name", name); err != nil {
		return err
	}
	if err = c.doc.SetDisplayText(ref, "description", desc); err != nil {
		return err
	}
	if err = c.resetFields(ref); err != nil {
		return err
	}
	return c.doc.SetMode(ref, dom.Viewing)
}

func (c *Console) applySection(ctx context.Context, ref dom.Ref, values map[string]string) error {
	id, err := entityID(ref)
	if err != nil {
		return err
	}
	name := core.CleanString(values["name"])
	if err = c.api.UpdateSection(ctx, id, name); err != nil {
		return c.fail(ref, err)
	}
	sect := c.sections[ref.Key]
	sect.Name = name
	c.sections[ref.Key] = sect

	if err = c.doc.SetDisplayText(ref, "name", name); err != nil {
		return err
	}
	if err = c.resetFields(ref); err != nil {
		return err
	}
	return c.doc.SetMode(ref, dom.Viewing)
}

func (c *Console) applyTopic(ctx context.Context, ref dom.Ref, values map[string]string) error {
	id, err := entityID(ref)
	if err != nil {
		return err
	}
	name, text, code := core.CleanString(values["name"]), core.CleanString(values["text"]), content.CleanCode(values["code"])
	if err = c.api.UpdateTopic(ctx, id, name, text, code); err != nil {
		return c.fail(ref, err)
	}
	topic := c.topics[ref.Key]
	topic.Name = name
	topic.Details.Text = text
	topic.Details.Code = code
	c.topics[ref.Key] = topic

	// topics have no children: re-render the node with the new content
	html, err := c.render.Topic(topic)
	if err != nil {
		return c.fail(ref, err)
	}
	return c.doc.Replace(ref, html)
}

func (c *Console) CancelEdit(ctx context.Context, ref dom.Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	return c.cancelEdit(ctx, ref)
}

func (c *Console) cancelEdit(_ context.Context, ref dom.Ref) error {
	if c.isTransient(ref) {
		return c.removeNode(ref)
	}
	if err := c.resetFields(ref); err != nil {
		return err
	}
	c.doc.ClearError(ref)
	return c.doc.SetMode(ref, dom.Viewing)
}

// removeNode drops the entity and restores the empty state of its container.
func (c *Console) removeNode(ref dom.Ref) error {
	parent, hasParent := c.doc.Parent(ref)
	if err := c.doc.Remove(ref); err != nil {
		return err
	}

	switch ref.Kind {
	case content.KindSubject:
		delete(c.subjects, ref.Key)
		if c.doc.IsEmpty(nil) {
			c.state = Empty
			c.doc.EnsurePlaceholder(nil, c.message(render.MessageEmpty, render.EmptyText))
		}
	case content.KindSection:
		delete(c.sections, ref.Key)
		if hasParent {
			c.ensurePlaceholder(parent, render.NoSectionsText)
		}
	case content.KindTopic:
		delete(c.topics, ref.Key)
		if hasParent {
			c.ensurePlaceholder(parent, render.NoTopicsText)
		}
	}
	return nil
}

func (c *Console) ensurePlaceholder(owner dom.Ref, text string) {
	html, err := c.render.Placeholder(text)
	if err != nil {
		c.logger.Error("rendering placeholder", err)
		return
	}
	c.doc.EnsurePlaceholder(&owner, html)
}

// AddSubject inserts an unsaved subject, in Editing, at the top of the tree.
func (c *Console) AddSubject(ctx context.Context) (dom.Ref, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return dom.Ref{}, ErrNotInitialized
	}
	return c.addSubject(ctx)
}

func (c *Console) addSubject(_ context.Context) (dom.Ref, error) {
	subj := content.Subject{TempID: content.TempIDPrefix + uuid.NewString()}
	html, err := c.render.Subject(subj)
	if err != nil {
		return dom.Ref{}, err
	}
	ref := dom.Ref{Kind: content.KindSubject, Key: subj.Key()}
	c.doc.Prepend(html)
	c.subjects[ref.Key] = subj
	c.state = Loaded
	return ref, c.doc.SetMode(ref, dom.Editing)
}

// AddSection asks for a section name, creates it and appends it to the subject.
// ok is false when the dialog was cancelled.
func (c *Console) AddSection(ctx context.Context, subjectRef dom.Ref) (ref dom.Ref, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return dom.Ref{}, false, ErrNotInitialized
	}
	ref, err = c.addSection(ctx, subjectRef)
	return ref, ref != dom.Ref{}, err
}

func (c *Console) addSection(ctx context.Context, subjectRef dom.Ref) (dom.Ref, error) {
	if c.isTransient(subjectRef) {
		return dom.Ref{}, ErrTransient
	}
	subjectID, err := entityID(subjectRef)
	if err != nil {
		return dom.Ref{}, err
	}
	values, ok, err := c.dialogs.Form(ctx, newSectionTitle, []dialog.Field{
		{Name: "name", Label: "Section name", Required: true},
	})
	if err != nil || !ok {
		return dom.Ref{}, err
	}
	if err = c.requireName(content.KindSection, values["name"]); err != nil {
		return dom.Ref{}, c.fail(subjectRef, err)
	}

	sect, err := c.api.CreateSection(ctx, subjectID, core.CleanString(values["name"]))
	if err != nil {
		return dom.Ref{}, c.fail(subjectRef, err)
	}
	c.doc.ClearError(subjectRef)
	html, err := c.render.Section(sect)
	if err != nil {
		return dom.Ref{}, err
	}
	return c.appendChild(subjectRef, content.KindSection, sect.Key(), html, func() { c.commitSection(sect) })
}

// AddTopic asks for the topic fields, creates it and appends it to the section.
func (c *Console) AddTopic(ctx context.Context, sectionRef dom.Ref) (ref dom.Ref, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return dom.Ref{}, false, ErrNotInitialized
	}
	ref, err = c.addTopic(ctx, sectionRef)
	return ref, ref != dom.Ref{}, err
}

func (c *Console) addTopic(ctx context.Context, sectionRef dom.Ref) (dom.Ref, error) {
	sectionID, err := entityID(sectionRef)
	if err != nil {
		return dom.Ref{}, err
	}
	values, ok, err := c.dialogs.Form(ctx, newTopicTitle, []dialog.Field{
		{Name: "name", Label: "Topic name", Required: true},
		{Name: "text", Label: "Text", Multiline: true},
		{Name: "code", Label: "Code", Multiline: true},
	})
	if err != nil || !ok {
		return dom.Ref{}, err
	}
	if err = c.requireName(content.KindTopic, values["name"]); err != nil {
		return dom.Ref{}, c.fail(sectionRef, err)
	}

	topic, err := c.api.CreateTopic(ctx, sectionID, core.CleanString(values["name"]), core.CleanString(values["text"]), content.CleanCode(values["code"]))
	if err != nil {
		return dom.Ref{}, c.fail(sectionRef, err)
	}
	c.doc.ClearError(sectionRef)
	html, err := c.render.Topic(topic)
	if err != nil {
		return dom.Ref{}, err
	}
	return c.appendChild(sectionRef, content.KindTopic, topic.Key(), html, func() { c.topics[topic.Key()] = topic })
}

func (c *Console) appendChild(parent dom.Ref, kind content.Kind, key string, html template.HTML, commit func()) (dom.Ref, error) {
	if err := c.doc.Append(parent, html); err != nil {
		return dom.Ref{}, err
	}
	commit()
	return dom.Ref{Kind: kind, Key: key}, nil
}

// Delete removes the entity after the children pre-check and an explicit confirmation.
func (c *Console) Delete(ctx context.Context, ref dom.Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ErrNotInitialized
	}
	return c.delete(ctx, ref)
}

func (c *Console) delete(ctx context.Context, ref dom.Ref) error {
	if !c.doc.Exists(ref) {
		return errors.Wrap(dom.ErrEntityNotFound, ref.String())
	}
	if c.isTransient(ref) {
		return c.removeNode(ref)
	}
	id, err := entityID(ref)
	if err != nil {
		return err
	}

	var hasChildren bool
	var childrenErr error
	switch ref.Kind {
	case content.KindSubject:
		hasChildren, err = c.api.CheckSubject(ctx, id)
		childrenErr = gateway.ErrSubjectHasSections
	case content.KindSection:
		hasChildren, err = c.api.CheckSection(ctx, id)
		childrenErr = gateway.ErrSectionHasTopics
	}
	if err != nil {
		return c.fail(ref, err)
	}
	if hasChildren {
		return c.dialogs.Warn(ctx, childrenErr.Error())
	}

	ok, err := c.dialogs.Confirm(ctx, deletePrompts[ref.Kind])
	if err != nil || !ok {
		return err
	}

	switch ref.Kind {
	case content.KindSubject:
		err = c.api.RemoveSubject(ctx, id)
	case content.KindSection:
		err = c.api.RemoveSection(ctx, id)
	case content.KindTopic:
		err = c.api.DeleteTopic(ctx, id)
	}
	if err != nil {
		return c.fail(ref, err)
	}
	return c.removeNode(ref)
}

// Logout asks for confirmation, ends the session and returns the login route.
// An empty route means the user stayed.
func (c *Console) Logout(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, err := c.logout(ctx)
	if loc != "" {
		c.location = loc
	}
	return loc, err
}

func (c *Console) logout(ctx context.Context) (string, error) {
	ok, err := c.dialogs.Confirm(ctx, logoutPrompt)
	if err != nil || !ok {
		return "", err
	}
	if err = c.api.Logout(ctx); err != nil {
		return "", err
	}
	return LoginRoute, nil
}
