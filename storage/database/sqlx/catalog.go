package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
)

const (
	subjectColumns     = `id, name, description, created_at`
	chapterColumns     = `id, subject_id, name, position, created_at`
	questionColumns    = `id, chapter_id, text, option_a, option_b, option_c, option_d, correct, explanation, created_at`
	noteColumns        = `id, chapter_id, title, content, created_at, updated_at`
	questionSetColumns = `id, title, kind, duration, is_free, created_at`
	commentColumns     = `id, question_id, user_id, body, created_at`

	// keeps question_set_item.position contiguous after questions are deleted
	renumberItemsQuery = `UPDATE question_set_item i SET position = r.rn
		FROM (
			SELECT question_set_id, question_id,
				ROW_NUMBER() OVER (PARTITION BY question_set_id ORDER BY position) AS rn
			FROM question_set_item
		) r
		WHERE i.question_set_id = r.question_set_id AND i.question_id = r.question_id AND i.position <> r.rn`
)

var (
	subjectOrderings = map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	questionOrderings = map[string]string{
		"text":       "text",
		"created_at": "created_at",
	}
	questionSetOrderings = map[string]string{
		"title":      "title",
		"duration":   "duration",
		"created_at": "created_at",
	}
)

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db core.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) getByID(ctx context.Context, dest interface{}, table, columns, id string, notFound error) error {
	if !isValidID(id) {
		return notFound
	}
	q := `SELECT ` + columns + ` FROM ` + table + ` WHERE id = $1`
	if err := repo.db.GetContext(ctx, dest, q, id); err != nil {
		return trapNoRowsErr(err, notFound, "finding "+table)
	}
	return nil
}

// namedWrite runs an INSERT or UPDATE and reports notFound if no row was touched.
func (repo *catalogRepository) namedWrite(ctx context.Context, q string, arg interface{}, notFound error, msg string) error {
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, arg)
	if err != nil {
		return dbErr(err, msg)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

func (repo *catalogRepository) deleteByID(ctx context.Context, exec core.DBExecutor, table, id string, notFound error) error {
	if !isValidID(id) {
		return notFound
	}
	res, err := exec.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return dbErr(err, "deleting "+table)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

// deleteCascading deletes a record whose deletion may cascade to questions, then renumbers set items.
func (repo *catalogRepository) deleteCascading(ctx context.Context, table, id string, notFound error) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := repo.deleteByID(ctx, tx, table, id, notFound); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, renumberItemsQuery)
		return dbErr(err, "renumbering question set items")
	})
}

// Subjects

func (repo *catalogRepository) CreateSubject(ctx context.Context, s catalog.Subject) (catalog.Subject, error) {
	q := `INSERT INTO subject (` + subjectColumns + `) VALUES (:id, :name, :description, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, s); err != nil {
		return catalog.Subject{}, dbErr(err, "inserting subject")
	}
	return s, nil
}

func (repo *catalogRepository) UpdateSubject(ctx context.Context, s catalog.Subject) (catalog.Subject, error) {
	q := `UPDATE subject SET name = :name, description = :description WHERE id = :id`
	if err := repo.namedWrite(ctx, q, s, catalog.ErrSubjectNotFound, "updating subject"); err != nil {
		return catalog.Subject{}, err
	}
	return s, nil
}

func (repo *catalogRepository) GetSubject(ctx context.Context, id string) (catalog.Subject, error) {
	var s catalog.Subject
	err := repo.getByID(ctx, &s, "subject", subjectColumns, id, catalog.ErrSubjectNotFound)
	return s, err
}

func (repo *catalogRepository) QuerySubjects(ctx context.Context, filter *catalog.SubjectFilter, ordering []core.DBOrdering) ([]catalog.Subject, error) {
	var where whereClause
	if filter != nil && filter.Search != "" {
		where.add("name ILIKE ?", "%"+filter.Search+"%")
	}
	q := where.query(
		`SELECT `+subjectColumns+` FROM subject`,
		` ORDER BY `+core.OrderByClause(ordering, subjectOrderings, "name ASC"),
	)
	subjects := make([]catalog.Subject, 0)
	if err := repo.db.SelectContext(ctx, &subjects, q, where.args...); err != nil {
		return nil, dbErr(err, "querying subjects")
	}
	return subjects, nil
}

func (repo *catalogRepository) DeleteSubject(ctx context.Context, id string) error {
	return repo.deleteCascading(ctx, "subject", id, catalog.ErrSubjectNotFound)
}

// Chapters

func (repo *catalogRepository) CreateChapter(ctx context.Context, c catalog.Chapter) (catalog.Chapter, error) {
	q := `INSERT INTO chapter (` + chapterColumns + `) VALUES (:id, :subject_id, :name, :position, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, c); err != nil {
		return catalog.Chapter{}, dbErr(err, "inserting chapter")
	}
	return c, nil
}

func (repo *catalogRepository) UpdateChapter(ctx context.Context, c catalog.Chapter) (catalog.Chapter, error) {
	q := `UPDATE chapter SET subject_id = :subject_id, name = :name, position = :position WHERE id = :id`
	if err := repo.namedWrite(ctx, q, c, catalog.ErrChapterNotFound, "updating chapter"); err != nil {
		return catalog.Chapter{}, err
	}
	return c, nil
}

func (repo *catalogRepository) GetChapter(ctx context.Context, id string) (catalog.Chapter, error) {
	var c catalog.Chapter
	err := repo.getByID(ctx, &c, "chapter", chapterColumns, id, catalog.ErrChapterNotFound)
	return c, err
}

func (repo *catalogRepository) QueryChapters(ctx context.Context, subjectID string) ([]catalog.Chapter, error) {
	chapters := make([]catalog.Chapter, 0)
	if !isValidID(subjectID) {
		return chapters, nil
	}
	q := `SELECT ` + chapterColumns + ` FROM chapter WHERE subject_id = $1 ORDER BY position, name`
	if err := repo.db.SelectContext(ctx, &chapters, q, subjectID); err != nil {
		return nil, dbErr(err, "querying chapters")
	}
	return chapters, nil
}

func (repo *catalogRepository) DeleteChapter(ctx context.Context, id string) error {
	return repo.deleteCascading(ctx, "chapter", id, catalog.ErrChapterNotFound)
}

// Questions

func (repo *catalogRepository) CreateQuestion(ctx context.Context, qn catalog.Question) (catalog.Question, error) {
	q := `INSERT INTO question (` + questionColumns + `) VALUES (
		:id, :chapter_id, :text, :option_a, :option_b, :option_c, :option_d, :correct, :explanation, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, qn); err != nil {
		return catalog.Question{}, dbErr(err, "inserting question")
	}
	return qn, nil
}

func (repo *catalogRepository) UpdateQuestion(ctx context.Context, qn catalog.Question) (catalog.Question, error) {
	q := `UPDATE question SET chapter_id = :chapter_id, text = :text, option_a = :option_a, option_b = :option_b,
		option_c = :option_c, option_d = :option_d, correct = :correct, explanation = :explanation WHERE id = :id`
	if err := repo.namedWrite(ctx, q, qn, catalog.ErrQuestionNotFound, "updating question"); err != nil {
		return catalog.Question{}, err
	}
	return qn, nil
}

func (repo *catalogRepository) GetQuestion(ctx context.Context, id string) (catalog.Question, error) {
	var qn catalog.Question
	err := repo.getByID(ctx, &qn, "question", questionColumns, id, catalog.ErrQuestionNotFound)
	return qn, err
}

func (repo *catalogRepository) GetQuestions(ctx context.Context, ids []string) ([]catalog.Question, error) {
	questions := make([]catalog.Question, 0, len(ids))
	valid := validIDs(ids...)
	if len(valid) == 0 {
		return questions, nil
	}
	q := `SELECT ` + questionColumns + ` FROM question WHERE id = ANY($1)`
	if err := repo.db.SelectContext(ctx, &questions, q, pq.Array(valid)); err != nil {
		return nil, dbErr(err, "finding questions")
	}
	return questions, nil
}

func (repo *catalogRepository) QueryQuestions(ctx context.Context, filter *catalog.QuestionFilter, ordering []core.DBOrdering) ([]catalog.Question, error) {
	questions := make([]catalog.Question, 0)
	var where whereClause
	if filter != nil {
		if filter.ChapterID != "" {
			if !isValidID(filter.ChapterID) {
				return questions, nil
			}
			where.add("chapter_id = ?", filter.ChapterID)
		}
		if filter.Search != "" {
			where.add("text ILIKE ?", "%"+filter.Search+"%")
		}
	}
	q := where.query(
		`SELECT `+questionColumns+` FROM question`,
		` ORDER BY `+core.OrderByClause(ordering, questionOrderings, "created_at ASC"),
	)
	if err := repo.db.SelectContext(ctx, &questions, q, where.args...); err != nil {
		return nil, dbErr(err, "querying questions")
	}
	return questions, nil
}

func (repo *catalogRepository) DeleteQuestion(ctx context.Context, id string) error {
	return repo.deleteCascading(ctx, "question", id, catalog.ErrQuestionNotFound)
}

// Notes

func (repo *catalogRepository) CreateNote(ctx context.Context, n catalog.Note) (catalog.Note, error) {
	q := `INSERT INTO note (` + noteColumns + `) VALUES (:id, :chapter_id, :title, :content, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, n); err != nil {
		return catalog.Note{}, dbErr(err, "inserting note")
	}
	return n, nil
}

func (repo *catalogRepository) UpdateNote(ctx context.Context, n catalog.Note) (catalog.Note, error) {
	q := `UPDATE note SET chapter_id = :chapter_id, title = :title, content = :content, updated_at = :updated_at WHERE id = :id`
	if err := repo.namedWrite(ctx, q, n, catalog.ErrNoteNotFound, "updating note"); err != nil {
		return catalog.Note{}, err
	}
	return n, nil
}

func (repo *catalogRepository) GetNote(ctx context.Context, id string) (catalog.Note, error) {
	var n catalog.Note
	err := repo.getByID(ctx, &n, "note", noteColumns, id, catalog.ErrNoteNotFound)
	return n, err
}

func (repo *catalogRepository) QueryNotes(ctx context.Context, chapterID string) ([]catalog.Note, error) {
	notes := make([]catalog.Note, 0)
	if !isValidID(chapterID) {
		return notes, nil
	}
	q := `SELECT ` + noteColumns + ` FROM note WHERE chapter_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &notes, q, chapterID); err != nil {
		return nil, dbErr(err, "querying notes")
	}
	return notes, nil
}

func (repo *catalogRepository) DeleteNote(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, repo.db, "note", id, catalog.ErrNoteNotFound)
}

// Question Sets

// loadItems sets the ordered Items of the sets.
func (repo *catalogRepository) loadItems(ctx context.Context, sets []catalog.QuestionSet) error {
	if len(sets) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sets))
	idx := make(map[string]int, len(sets))
	for i := range sets {
		ids = append(ids, sets[i].ID)
		idx[sets[i].ID] = i
		sets[i].Items = []catalog.QuestionSetItem{}
	}

	var items []catalog.QuestionSetItem
	q := `SELECT question_set_id, question_id, position FROM question_set_item
		WHERE question_set_id = ANY($1) ORDER BY question_set_id, position`
	if err := repo.db.SelectContext(ctx, &items, q, pq.Array(ids)); err != nil {
		return dbErr(err, "querying question set items")
	}
	for _, it := range items {
		i := idx[it.QuestionSetID]
		sets[i].Items = append(sets[i].Items, it)
	}
	return nil
}

func (repo *catalogRepository) CreateQuestionSet(ctx context.Context, qs catalog.QuestionSet) (catalog.QuestionSet, error) {
	q := `INSERT INTO question_set (` + questionSetColumns + `) VALUES (:id, :title, :kind, :duration, :is_free, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, qs); err != nil {
		return catalog.QuestionSet{}, dbErr(err, "inserting question set")
	}
	qs.Items = []catalog.QuestionSetItem{}
	return qs, nil
}

func (repo *catalogRepository) UpdateQuestionSet(ctx context.Context, qs catalog.QuestionSet) (catalog.QuestionSet, error) {
	q := `UPDATE question_set SET title = :title, kind = :kind, duration = :duration, is_free = :is_free WHERE id = :id`
	if err := repo.namedWrite(ctx, q, qs, catalog.ErrQuestionSetNotFound, "updating question set"); err != nil {
		return catalog.QuestionSet{}, err
	}
	return repo.GetQuestionSet(ctx, qs.ID)
}

func (repo *catalogRepository) GetQuestionSet(ctx context.Context, id string) (catalog.QuestionSet, error) {
	var qs catalog.QuestionSet
	if err := repo.getByID(ctx, &qs, "question_set", questionSetColumns, id, catalog.ErrQuestionSetNotFound); err != nil {
		return catalog.QuestionSet{}, err
	}
	sets := []catalog.QuestionSet{qs}
	if err := repo.loadItems(ctx, sets); err != nil {
		return catalog.QuestionSet{}, err
	}
	return sets[0], nil
}

func (repo *catalogRepository) QueryQuestionSets(ctx context.Context, filter *catalog.QuestionSetFilter, ordering []core.DBOrdering) ([]catalog.QuestionSet, error) {
	var where whereClause
	if filter != nil {
		if filter.Kind != "" {
			where.add("kind = ?", filter.Kind)
		}
		if filter.IsFree != nil {
			where.add("is_free = ?", *filter.IsFree)
		}
	}
	q := where.query(
		`SELECT `+questionSetColumns+` FROM question_set`,
		` ORDER BY `+core.OrderByClause(ordering, questionSetOrderings, "created_at DESC"),
	)
	sets := make([]catalog.QuestionSet, 0)
	if err := repo.db.SelectContext(ctx, &sets, q, where.args...); err != nil {
		return nil, dbErr(err, "querying question sets")
	}
	if err := repo.loadItems(ctx, sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (repo *catalogRepository) DeleteQuestionSet(ctx context.Context, id string) error {
	return repo.deleteByID(ctx, repo.db, "question_set", id, catalog.ErrQuestionSetNotFound)
}

func (repo *catalogRepository) ReplaceQuestionSetItems(ctx context.Context, setID string, items []catalog.QuestionSetItem) error {
	if !isValidID(setID) {
		return catalog.ErrQuestionSetNotFound
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// lock the set so that concurrent replacements are serialized
		var id string
		err := tx.GetContext(ctx, &id, `SELECT id FROM question_set WHERE id = $1 FOR UPDATE`, setID)
		if err != nil {
			return trapNoRowsErr(err, catalog.ErrQuestionSetNotFound, "locking question set")
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM question_set_item WHERE question_set_id = $1`, setID); err != nil {
			return dbErr(err, "deleting question set items")
		}
		if len(items) == 0 {
			return nil
		}
		q := `INSERT INTO question_set_item (question_set_id, question_id, position)
			VALUES (:question_set_id, :question_id, :position)`
		_, err = tx.NamedExecContext(ctx, q, items)
		return dbErr(err, "inserting question set items")
	})
}

// Comments

func (repo *catalogRepository) CreateComment(ctx context.Context, c catalog.Comment) (catalog.Comment, error) {
	q := `INSERT INTO comment (` + commentColumns + `) VALUES (:id, :question_id, :user_id, :body, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, c); err != nil {
		return catalog.Comment{}, dbErr(err, "inserting comment")
	}
	return c, nil
}

func (repo *catalogRepository) QueryComments(ctx context.Context, questionID string) ([]catalog.Comment, error) {
	comments := make([]catalog.Comment, 0)
	if !isValidID(questionID) {
		return comments, nil
	}
	q := `SELECT ` + commentColumns + ` FROM comment WHERE question_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &comments, q, questionID); err != nil {
		return nil, dbErr(err, "querying comments")
	}
	return comments, nil
}
