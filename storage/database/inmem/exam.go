package inmemdb

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db}
}

// Catalogues

func (repo *examRepository) ListExamMasters(_ context.Context, _ ...core.DBExecutor) (map[int]exam.ExamMaster, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return maps.Clone(repo.db.t.examMasters), nil
}

func (repo *examRepository) UpsertExamMaster(_ context.Context, m exam.ExamMaster, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.t.examMasters[m.Code] = m
	return nil
}

func (repo *examRepository) CreateExamMaster(_ context.Context, m exam.ExamMaster, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, exists := repo.db.t.examMasters[m.Code]; !exists {
		repo.db.t.examMasters[m.Code] = m
	}
	return nil
}

func (repo *examRepository) CountExamMasters(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.t.examMasters), nil
}

func (repo *examRepository) ListSubjectMasters(_ context.Context, _ ...core.DBExecutor) (map[int]exam.SubjectMaster, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return maps.Clone(repo.db.t.subjects), nil
}

func (repo *examRepository) CreateSubjectMaster(_ context.Context, m exam.SubjectMaster, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, exists := repo.db.t.subjects[m.Code]; exists {
		return core.ErrPKCollision
	}
	repo.db.t.subjects[m.Code] = m
	return nil
}

// Import

func (repo *examRepository) ExistingSittings(_ context.Context, keys []exam.SittingKey, _ ...core.DBExecutor) ([]exam.SittingKey, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	stored := make(map[exam.SittingKey]bool)
	for _, e := range repo.db.t.exams {
		stored[exam.SittingKey{Year: e.Year, Code: e.Code}] = true
	}
	var dups []exam.SittingKey
	for _, k := range keys {
		if stored[k] {
			dups = append(dups, k)
		}
	}
	return dups, nil
}

func (repo *examRepository) FindExam(_ context.Context, code, year int, examType string, _ ...core.DBExecutor) (int, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for id, e := range repo.db.t.exams {
		if e.Code == code && e.Year == year && e.Type == examType {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (repo *examRepository) CreateExam(_ context.Context, e exam.Exam, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	e.ID = repo.db.nextID(core.SeqExams.Table)
	if _, taken := repo.db.t.exams[e.ID]; taken {
		return 0, core.ErrPKCollision
	}
	repo.db.t.exams[e.ID] = e
	return e.ID, nil
}

func (repo *examRepository) FindResult(_ context.Context, studentID, examID int, _ ...core.DBExecutor) (int, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for id, r := range repo.db.t.results {
		if r.StudentID == studentID && r.ExamID == examID {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (repo *examRepository) CreateResult(_ context.Context, r exam.Result, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r.ID = repo.db.nextID(core.SeqExamResults.Table)
	if _, taken := repo.db.t.results[r.ID]; taken {
		return 0, core.ErrPKCollision
	}
	repo.db.t.results[r.ID] = r
	return r.ID, nil
}

func (repo *examRepository) UpsertSubjectScore(_ context.Context, s exam.SubjectScore, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := scoreKey{resultID: s.ResultID, subjectCode: s.SubjectCode}
	_, exists := repo.db.t.scores[key]
	repo.db.t.scores[key] = s
	return !exists, nil
}

func (repo *examRepository) UpsertJudgement(_ context.Context, j exam.Judgement, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := judgementKey{resultID: j.ResultID, order: j.PreferenceOrder}
	if cur, exists := repo.db.t.judgements[key]; exists {
		j.ID = cur.ID
		repo.db.t.judgements[key] = j
		return false, nil
	}
	j.ID = repo.db.nextID("exam_judgements")
	repo.db.t.judgements[key] = j
	return true, nil
}

func (repo *examRepository) RepairSequence(_ context.Context, seq core.Sequence, _ ...core.DBExecutor) error {
	repo.db.repairSequence(seq)
	return nil
}

// Queries

func (repo *examRepository) ListYears(_ context.Context, _ ...core.DBExecutor) ([]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, e := range repo.db.t.exams {
		if !seen[e.Year] {
			seen[e.Year] = true
			years = append(years, e.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (repo *examRepository) ListExamTypes(_ context.Context, year int, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[string]bool)
	types := make([]string, 0)
	for _, e := range repo.db.t.exams {
		if (year == 0 || e.Year == year) && !seen[e.Type] {
			seen[e.Type] = true
			types = append(types, e.Type)
		}
	}
	sort.Strings(types)
	return types, nil
}

func (repo *examRepository) ListExamNames(_ context.Context, year int, examType string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, e := range repo.db.t.exams {
		m, ok := repo.db.t.examMasters[e.Code]
		if !ok || (year != 0 && e.Year != year) || (examType != "" && e.Type != examType) {
			continue
		}
		if !seen[m.Name] {
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (repo *examRepository) SearchExams(_ context.Context, filter exam.SearchFilter, _ ...core.DBExecutor) ([]exam.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[int]int)
	for _, r := range repo.db.t.results {
		counts[r.ExamID]++
	}
	out := make([]exam.Summary, 0)
	for _, e := range repo.db.t.exams {
		m, ok := repo.db.t.examMasters[e.Code]
		switch {
		case !ok:
			continue
		case filter.Year != 0 && e.Year != filter.Year:
			continue
		case filter.ExamType != "" && e.Type != filter.ExamType:
			continue
		case filter.Name != "" && m.Name != filter.Name:
			continue
		}
		out = append(out, exam.Summary{
			ExamID: e.ID, ExamYear: e.Year, ExamType: e.Type, ExamName: m.Name, NumStudents: counts[e.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExamYear != out[j].ExamYear {
			return out[i].ExamYear > out[j].ExamYear
		}
		if out[i].ExamName != out[j].ExamName {
			return out[i].ExamName < out[j].ExamName
		}
		return out[i].ExamID < out[j].ExamID
	})
	return out, nil
}

// names returns the master names behind a department id, if any.
func (db *DB) names(depID null.Int) (uni, fac, dep null.String) {
	if !depID.Valid {
		return
	}
	d, ok := db.t.departments[depID.Int]
	if !ok {
		return
	}
	dep = null.StringFrom(d.Name)
	if f, ok := db.t.faculties[d.FacultyID]; ok {
		fac = null.StringFrom(f.Name)
		if u, ok := db.t.universities[f.UniversityID]; ok {
			uni = null.StringFrom(u.Name)
		}
	}
	return
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (repo *examRepository) QueryJudgementLines(_ context.Context, filter exam.JudgementFilter, _ ...core.DBExecutor) ([]exam.JudgementLine, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]exam.JudgementLine, 0)
	for _, j := range repo.db.t.judgements {
		r, ok := repo.db.t.results[j.ResultID]
		if !ok || r.ExamID != filter.ExamID {
			continue
		}
		s, ok := repo.db.t.students[r.StudentID]
		if !ok {
			continue
		}
		uni, fac, dep := repo.db.names(j.DepartmentID)
		switch {
		case filter.Name != "" && !containsFold(s.Name, filter.Name):
			continue
		case filter.University != "" && !containsFold(uni.String, filter.University):
			continue
		case filter.Faculty != "" && !containsFold(fac.String, filter.Faculty):
			continue
		case filter.OrderMin > 0 && filter.OrderMax > 0 &&
			(j.PreferenceOrder < filter.OrderMin || j.PreferenceOrder > filter.OrderMax):
			continue
		}
		out = append(out, exam.JudgementLine{
			StudentID:       s.ID,
			Name:            s.Name,
			SchoolName:      s.SchoolName,
			PreferenceOrder: j.PreferenceOrder,
			Kyote:           j.Kyote,
			Niji:            j.Niji,
			Sougou:          j.Sougou,
			University:      uni,
			Faculty:         fac,
			Department:      dep,
		})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].StudentID != out[k].StudentID {
			return out[i].StudentID < out[k].StudentID
		}
		return out[i].PreferenceOrder < out[k].PreferenceOrder
	})
	return out, nil
}

func (repo *examRepository) QueryStudentSittings(_ context.Context, studentID int, _ ...core.DBExecutor) ([]exam.StudentSitting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]exam.StudentSitting, 0)
	for _, r := range repo.db.t.results {
		if r.StudentID != studentID {
			continue
		}
		e, ok := repo.db.t.exams[r.ExamID]
		if !ok {
			continue
		}
		m, ok := repo.db.t.examMasters[e.Code]
		if !ok {
			continue
		}
		sit := exam.StudentSitting{
			ResultID: r.ID, ExamID: e.ID, ExamName: m.Name, ExamYear: e.Year, ExamType: e.Type, SortKey: m.SortKey,
			Judgements: make([]exam.ChoiceDetail, 0),
			Scores:     make([]exam.SubjectDetail, 0),
		}
		for _, j := range repo.db.t.judgements {
			if j.ResultID != r.ID {
				continue
			}
			uni, fac, dep := repo.db.names(j.DepartmentID)
			if !dep.Valid {
				continue // only choices linked to a department are listed
			}
			sit.Judgements = append(sit.Judgements, exam.ChoiceDetail{
				ResultID: r.ID, University: uni.String, Faculty: fac.String, Department: dep.String,
				PreferenceOrder: j.PreferenceOrder, Kyote: j.Kyote, Niji: j.Niji, Sougou: j.Sougou,
			})
		}
		sort.Slice(sit.Judgements, func(a, b int) bool {
			return sit.Judgements[a].PreferenceOrder < sit.Judgements[b].PreferenceOrder
		})
		for _, sc := range repo.db.t.scores {
			if sc.ResultID != r.ID {
				continue
			}
			sm, ok := repo.db.t.subjects[sc.SubjectCode]
			if !ok {
				continue
			}
			sit.Scores = append(sit.Scores, exam.SubjectDetail{
				ResultID: r.ID, SubjectCode: sc.SubjectCode, SubjectName: sm.Name, Score: sc.Score, Deviation: sc.Deviation,
			})
		}
		sort.Slice(sit.Scores, func(a, b int) bool { return sit.Scores[a].SubjectCode < sit.Scores[b].SubjectCode })
		out = append(out, sit)
	}
	return out, nil
}

// SeedExam stores an exam under a chosen id without touching the sequence.
func (db *DB) SeedExam(e exam.Exam) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t.exams[e.ID] = e
}

// Exams, Results, Scores and Judgements return copies of their tables, for assertions.

func (db *DB) Exams() []exam.Exam {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]exam.Exam, 0, len(db.t.exams))
	for _, e := range db.t.exams {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) Results() []exam.Result {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]exam.Result, 0, len(db.t.results))
	for _, r := range db.t.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) Scores() []exam.SubjectScore {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]exam.SubjectScore, 0, len(db.t.scores))
	for _, s := range db.t.scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ResultID != out[j].ResultID {
			return out[i].ResultID < out[j].ResultID
		}
		return out[i].SubjectCode < out[j].SubjectCode
	})
	return out
}

func (db *DB) Judgements() []exam.Judgement {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]exam.Judgement, 0, len(db.t.judgements))
	for _, j := range db.t.judgements {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].ResultID != out[k].ResultID {
			return out[i].ResultID < out[k].ResultID
		}
		return out[i].PreferenceOrder < out[k].PreferenceOrder
	})
	return out
}
