package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/exam"
)

type examRepository struct {
	executor
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(exec core.DBExecutor) *examRepository {
	return &examRepository{executor{exec: exec}}
}

// Catalogues

func (repo examRepository) ListExamMasters(ctx context.Context, exec ...core.DBExecutor) (map[int]exam.ExamMaster, error) {
	var masters []exam.ExamMaster
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &masters,
		"SELECT exam_code, exam_name, sort_key FROM exam_master"); err != nil {
		return nil, errors.Wrap(err, "listing exam masters")
	}
	out := make(map[int]exam.ExamMaster, len(masters))
	for _, m := range masters {
		out[m.Code] = m
	}
	return out, nil
}

func (repo examRepository) UpsertExamMaster(ctx context.Context, m exam.ExamMaster, exec ...core.DBExecutor) error {
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		INSERT INTO exam_master (exam_code, exam_name, sort_key) VALUES (:exam_code, :exam_name, :sort_key)
		ON CONFLICT (exam_code) DO UPDATE SET exam_name = EXCLUDED.exam_name, sort_key = EXCLUDED.sort_key`, m)
	return errors.Wrap(err, "upserting exam master")
}

func (repo examRepository) CreateExamMaster(ctx context.Context, m exam.ExamMaster, exec ...core.DBExecutor) error {
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), `
		INSERT INTO exam_master (exam_code, exam_name, sort_key) VALUES (:exam_code, :exam_name, :sort_key)
		ON CONFLICT (exam_code) DO NOTHING`, m)
	return errors.Wrap(err, "inserting exam master")
}

func (repo examRepository) CountExamMasters(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, repo.getExec(exec), &n, "SELECT COUNT(*) FROM exam_master")
	return n, errors.Wrap(err, "counting exam masters")
}

func (repo examRepository) ListSubjectMasters(ctx context.Context, exec ...core.DBExecutor) (map[int]exam.SubjectMaster, error) {
	var subjects []exam.SubjectMaster
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &subjects,
		"SELECT subject_code, subject_name FROM subject_master"); err != nil {
		return nil, errors.Wrap(err, "listing subject masters")
	}
	out := make(map[int]exam.SubjectMaster, len(subjects))
	for _, s := range subjects {
		out[s.Code] = s
	}
	return out, nil
}

func (repo examRepository) CreateSubjectMaster(ctx context.Context, m exam.SubjectMaster, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO subject_master (subject_code, subject_name) VALUES ($1, $2)", m.Code, m.Name)
	if isPKCollision(err) {
		return core.ErrPKCollision
	}
	return errors.Wrap(err, "inserting subject master")
}

// Import

func (repo examRepository) ExistingSittings(ctx context.Context, keys []exam.SittingKey, exec ...core.DBExecutor) ([]exam.SittingKey, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	years := make([]int64, len(keys))
	codes := make([]int64, len(keys))
	for i, k := range keys {
		years[i], codes[i] = int64(k.Year), int64(k.Code)
	}

	var rows []struct {
		Year int `db:"exam_year"`
		Code int `db:"exam_code"`
	}
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, `
		SELECT DISTINCT e.exam_year, e.exam_code
		FROM exams e
		JOIN unnest($1::int[], $2::int[]) AS k (exam_year, exam_code)
			ON k.exam_year = e.exam_year AND k.exam_code = e.exam_code`,
		pq.Array(years), pq.Array(codes))
	if err != nil {
		return nil, errors.Wrap(err, "checking existing exams")
	}
	out := make([]exam.SittingKey, 0, len(rows))
	for _, r := range rows {
		out = append(out, exam.SittingKey{Year: r.Year, Code: r.Code})
	}
	return out, nil
}

func (repo examRepository) FindExam(ctx context.Context, code, year int, examType string, exec ...core.DBExecutor) (int, bool, error) {
	var id int
	err := sqlx.GetContext(ctx, repo.getExec(exec), &id,
		"SELECT exam_id FROM exams WHERE exam_code = $1 AND exam_year = $2 AND exam_type = $3", code, year, examType)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, errors.Wrap(err, "finding exam")
	}
	return id, true, nil
}

func (repo examRepository) CreateExam(ctx context.Context, e exam.Exam, exec ...core.DBExecutor) (int, error) {
	id, err := insertID(ctx, repo.getExec(exec),
		"INSERT INTO exams (exam_code, exam_year, exam_type) VALUES ($1, $2, $3) RETURNING exam_id",
		e.Code, e.Year, e.Type)
	return id, errors.Wrap(err, "inserting exam")
}

func (repo examRepository) FindResult(ctx context.Context, studentID, examID int, exec ...core.DBExecutor) (int, bool, error) {
	var id int
	err := sqlx.GetContext(ctx, repo.getExec(exec), &id,
		"SELECT result_id FROM exam_results WHERE student_id = $1 AND exam_id = $2", studentID, examID)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, errors.Wrap(err, "finding exam result")
	}
	return id, true, nil
}

func (repo examRepository) CreateResult(ctx context.Context, r exam.Result, exec ...core.DBExecutor) (int, error) {
	id, err := insertID(ctx, repo.getExec(exec),
		"INSERT INTO exam_results (student_id, exam_id) VALUES ($1, $2) RETURNING result_id", r.StudentID, r.ExamID)
	return id, errors.Wrap(err, "inserting exam result")
}

// xmax is 0 only on rows the statement inserted, which tells inserts from updates.

func (repo examRepository) UpsertSubjectScore(ctx context.Context, s exam.SubjectScore, exec ...core.DBExecutor) (bool, error) {
	var inserted bool
	err := sqlx.GetContext(ctx, repo.getExec(exec), &inserted, `
		INSERT INTO subject_scores (result_id, subject_code, score, deviation_value) VALUES ($1, $2, $3, $4)
		ON CONFLICT (result_id, subject_code)
		DO UPDATE SET score = EXCLUDED.score, deviation_value = EXCLUDED.deviation_value
		RETURNING (xmax = 0)`,
		s.ResultID, s.SubjectCode, s.Score, s.Deviation)
	return inserted, errors.Wrap(err, "upserting subject score")
}

func (repo examRepository) UpsertJudgement(ctx context.Context, j exam.Judgement, exec ...core.DBExecutor) (bool, error) {
	var inserted bool
	err := sqlx.GetContext(ctx, repo.getExec(exec), &inserted, `
		INSERT INTO exam_judgements
			(result_id, preference_order, department_id, judgement_kyote, judgement_niji, judgement_sougou)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (result_id, preference_order) DO UPDATE SET
			department_id = EXCLUDED.department_id,
			judgement_kyote = EXCLUDED.judgement_kyote,
			judgement_niji = EXCLUDED.judgement_niji,
			judgement_sougou = EXCLUDED.judgement_sougou
		RETURNING (xmax = 0)`,
		j.ResultID, j.PreferenceOrder, j.DepartmentID, j.Kyote, j.Niji, j.Sougou)
	return inserted, errors.Wrap(err, "upserting judgement")
}

func (repo examRepository) RepairSequence(ctx context.Context, seq core.Sequence, exec ...core.DBExecutor) error {
	return repairSequence(ctx, repo.getExec(exec), seq)
}

// Queries

func (repo examRepository) ListYears(ctx context.Context, exec ...core.DBExecutor) ([]int, error) {
	years := make([]int, 0)
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &years,
		"SELECT DISTINCT exam_year FROM exams ORDER BY exam_year DESC")
	return years, errors.Wrap(err, "listing exam years")
}

func (repo examRepository) ListExamTypes(ctx context.Context, year int, exec ...core.DBExecutor) ([]string, error) {
	types := make([]string, 0)
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &types, `
		SELECT DISTINCT exam_type FROM exams
		WHERE ($1::int = 0 OR exam_year = $1)
		ORDER BY exam_type`, year)
	return types, errors.Wrap(err, "listing exam types")
}

func (repo examRepository) ListExamNames(ctx context.Context, year int, examType string, exec ...core.DBExecutor) ([]string, error) {
	names := make([]string, 0)
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &names, `
		SELECT DISTINCT m.exam_name
		FROM exams e JOIN exam_master m ON m.exam_code = e.exam_code
		WHERE ($1::int = 0 OR e.exam_year = $1) AND ($2::text = '' OR e.exam_type = $2)
		ORDER BY m.exam_name`, year, examType)
	return names, errors.Wrap(err, "listing exam names")
}

func (repo examRepository) SearchExams(ctx context.Context, filter exam.SearchFilter, exec ...core.DBExecutor) ([]exam.Summary, error) {
	exams := make([]exam.Summary, 0)
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &exams, `
		SELECT e.exam_id, e.exam_year, e.exam_type, m.exam_name, COUNT(r.result_id) AS num_students
		FROM exams e
		JOIN exam_master m ON m.exam_code = e.exam_code
		LEFT JOIN exam_results r ON r.exam_id = e.exam_id
		WHERE ($1::int = 0 OR e.exam_year = $1) AND ($2::text = '' OR e.exam_type = $2) AND ($3::text = '' OR m.exam_name = $3)
		GROUP BY e.exam_id, m.exam_name
		ORDER BY e.exam_year DESC, m.exam_name, e.exam_id`,
		filter.Year, filter.ExamType, filter.Name)
	return exams, errors.Wrap(err, "searching exams")
}

const choiceJoins = `
	FROM exam_judgements j
	JOIN exam_results r ON r.result_id = j.result_id
	LEFT JOIN departments d ON d.department_id = j.department_id
	LEFT JOIN faculties f ON f.faculty_id = d.faculty_id
	LEFT JOIN universities u ON u.university_id = f.university_id`

func (repo examRepository) QueryJudgementLines(ctx context.Context, filter exam.JudgementFilter, exec ...core.DBExecutor) ([]exam.JudgementLine, error) {
	lines := make([]exam.JudgementLine, 0)
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &lines, `
		SELECT s.student_id, s.name, s.school_name, j.preference_order,
			j.judgement_kyote, j.judgement_niji, j.judgement_sougou,
			u.university_name, f.faculty_name, d.department_name`+choiceJoins+`
		JOIN students s ON s.student_id = r.student_id
		WHERE r.exam_id = $1
			AND ($2::text = '' OR s.name ILIKE '%' || $2 || '%')
			AND ($3::text = '' OR u.university_name ILIKE '%' || $3 || '%')
			AND ($4::text = '' OR f.faculty_name ILIKE '%' || $4 || '%')
			AND ($5::int = 0 OR $6::int = 0 OR j.preference_order BETWEEN $5 AND $6)
		ORDER BY s.student_id, j.preference_order`,
		filter.ExamID, filter.Name, filter.University, filter.Faculty, filter.OrderMin, filter.OrderMax)
	return lines, errors.Wrap(err, "querying judgements")
}

func (repo examRepository) QueryStudentSittings(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]exam.StudentSitting, error) {
	e := repo.getExec(exec)

	sittings := make([]exam.StudentSitting, 0)
	if err := sqlx.SelectContext(ctx, e, &sittings, `
		SELECT r.result_id, x.exam_id, m.exam_name, x.exam_year, x.exam_type, m.sort_key
		FROM exam_results r
		JOIN exams x ON x.exam_id = r.exam_id
		JOIN exam_master m ON m.exam_code = x.exam_code
		WHERE r.student_id = $1
		ORDER BY x.exam_year, m.sort_key, x.exam_id`, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student exams")
	}
	if len(sittings) == 0 {
		return sittings, nil
	}

	var choices []exam.ChoiceDetail
	if err := sqlx.SelectContext(ctx, e, &choices, `
		SELECT j.result_id, u.university_name, f.faculty_name, d.department_name, j.preference_order,
			j.judgement_kyote, j.judgement_niji, j.judgement_sougou`+choiceJoins+`
		WHERE r.student_id = $1 AND d.department_id IS NOT NULL
		ORDER BY j.result_id, j.preference_order`, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student judgements")
	}

	var scores []exam.SubjectDetail
	if err := sqlx.SelectContext(ctx, e, &scores, `
		SELECT sc.result_id, sc.subject_code, sm.subject_name, sc.score, sc.deviation_value
		FROM subject_scores sc
		JOIN exam_results r ON r.result_id = sc.result_id
		JOIN subject_master sm ON sm.subject_code = sc.subject_code
		WHERE r.student_id = $1
		ORDER BY sc.result_id, sc.subject_code`, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student scores")
	}

	pos := make(map[int]int, len(sittings))
	for i := range sittings {
		pos[sittings[i].ResultID] = i
		sittings[i].Judgements = make([]exam.ChoiceDetail, 0)
		sittings[i].Scores = make([]exam.SubjectDetail, 0)
	}
	for _, c := range choices {
		if i, ok := pos[c.ResultID]; ok {
			sittings[i].Judgements = append(sittings[i].Judgements, c)
		}
	}
	for _, s := range scores {
		if i, ok := pos[s.ResultID]; ok {
			sittings[i].Scores = append(sittings[i].Scores, s)
		}
	}
	return sittings, nil
}
