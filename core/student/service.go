package student

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/sheet"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
)

type (
	Repository interface {
		GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		// GetStudentsByID returns the known students among ids, keyed by id.
		GetStudentsByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (map[int]Student, error)
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) error
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) error
		// ResignAbsent marks every not yet resigned student whose id is not in keepIDs as resigned.
		// Graduated students are left alone unless resignGraduated is set.
		ResignAbsent(ctx context.Context, keepIDs []int, resignGraduated bool, exec ...core.DBExecutor) (int, error)
		// QueryStudents does a case-insensitive keyword match on name, kana, school or the digits of the id.
		QueryStudents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Student, error)
		QueryActiveStudents(ctx context.Context, exec ...core.DBExecutor) ([]Student, error)
	}

	Options struct {
		// ResignGraduatedOnAbsence also resigns graduated students missing from a roster.
		ResignGraduatedOnAbsence bool
	}

	Service struct {
		tx     core.Transactor
		repo   Repository
		logger core.Logger
		opts   Options
	}
)

func NewService(tx core.Transactor, repo Repository, logger core.Logger, opts Options) *Service {
	return &Service{tx: tx, repo: repo, logger: logger, opts: opts}
}

// ImportRoster applies a roster CSV: new students are inserted, known ones updated,
// and every student absent from the file is marked resigned. All in one transaction.
func (svc *Service) ImportRoster(ctx context.Context, data []byte) (RosterResult, error) {
	records, err := sheet.ReadRoster(data)
	if err != nil {
		return RosterResult{}, err
	}
	rows := dedupRoster(records)

	runID := uuid.NewString()
	res := RosterResult{TotalInFile: len(rows)}

	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		ids := make([]int, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.StudentID)
		}
		known, err := svc.repo.GetStudentsByID(ctx, ids, exec)
		if err != nil {
			return err
		}

		for _, r := range rows {
			cur, exists := known[r.StudentID]
			if !exists {
				if !r.AdmissionDate.Valid {
					res.Skipped++
					continue
				}
				s := Student{
					ID:            r.StudentID,
					Name:          r.Name,
					NameKana:      r.NameKana,
					SchoolName:    r.SchoolName,
					Grade:         r.Grade,
					AdmissionDate: r.AdmissionDate,
					Status:        StatusEnrolled,
				}
				if err := svc.repo.CreateStudent(ctx, s, exec); err != nil {
					return err
				}
				res.Inserted++
				continue
			}

			cur.Name = r.Name
			cur.NameKana = r.NameKana
			cur.SchoolName = r.SchoolName
			cur.Grade = r.Grade
			if r.AdmissionDate.Valid {
				cur.AdmissionDate = r.AdmissionDate
			}
			if cur.Status == StatusResigned {
				cur.Status = StatusEnrolled
			}
			if err := svc.repo.UpdateStudent(ctx, cur, exec); err != nil {
				return err
			}
			res.Updated++
		}

		res.Resigned, err = svc.repo.ResignAbsent(ctx, ids, svc.opts.ResignGraduatedOnAbsence, exec)
		return err
	})
	if err != nil {
		svc.logger.Error("roster import failed", "run", runID, "error", err)
		return RosterResult{}, err
	}

	svc.logger.Info("roster imported",
		"run", runID, "inserted", res.Inserted, "updated", res.Updated,
		"skipped", res.Skipped, "total", res.TotalInFile, "resigned", res.Resigned,
	)
	return res, nil
}

// dedupRoster drops rows without a numeric id; for repeated ids the last row wins.
// Rows keep the order of their first appearance.
func dedupRoster(records []sheet.RosterRecord) []RosterRow {
	pos := make(map[int]int)
	var rows []RosterRow
	for _, rec := range records {
		id, ok := core.ParseInt(rec.StudentID)
		if !ok {
			continue
		}
		row := RosterRow{
			StudentID:     id,
			Name:          rec.Name,
			NameKana:      rec.NameKana,
			AdmissionDate: rec.AdmissionDate,
			SchoolName:    rec.SchoolName,
			Grade:         rec.Grade,
		}
		if i, seen := pos[id]; seen {
			rows[i] = row
			continue
		}
		pos[id] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

func (svc *Service) Search(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	students, err := svc.repo.QueryStudents(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}
