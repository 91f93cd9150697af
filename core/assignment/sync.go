package assignment

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
)

const (
	opAdd    = "add_assigned_project"
	opRemove = "remove_assigned_project"
)

// SyncResult reports the judges added to and removed from a project, relative to its stored judge list.
type SyncResult struct {
	ProjectID string       `json:"project_id"`
	Added     []string     `json:"added"`
	Removed   []string     `json:"removed"`
	Errors    []JudgeError `json:"errors,omitempty"`
}

// Synchronizer keeps a project's judge list and each judge's project list consistent.
//
// With a db, every sync runs in one transaction. Without one, writes are set operations applied to
// the whole desired state, so a failed sync is repaired by running it again.
type Synchronizer struct {
	db       core.DB
	projRepo project.Repository
	usrRepo  user.Repository
	mailSvc  core.EmailService
	logger   core.Logger
}

// NewSynchronizer returns a Synchronizer. db, mailSvc and logger are optional.
func NewSynchronizer(db core.DB, projRepo project.Repository, usrRepo user.Repository, mailSvc core.EmailService, logger core.Logger) *Synchronizer {
	return &Synchronizer{
		db:       db,
		projRepo: projRepo,
		usrRepo:  usrRepo,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// atomically runs fn in a transaction when the store offers one.
func (s *Synchronizer) atomically(ctx context.Context, fn func(exec ...core.DBExecutor) error) error {
	if s.db == nil {
		return fn()
	}
	return core.RunInTx(ctx, s.db, func(exec core.DBExecutor) error { return fn(exec) })
}

// Sync makes judgeIDs the complete judge set of projectID.
// Every id must belong to an existing judge; otherwise nothing is written and a ValidationError is returned.
// Judge-side failures are returned as a *SyncError along with the result.
func (s *Synchronizer) Sync(ctx context.Context, projectID string, judgeIDs []string) (SyncResult, error) {
	desired := core.UniqueStrings(judgeIDs)
	res := SyncResult{ProjectID: projectID, Added: []string{}, Removed: []string{}}

	var (
		proj   project.Project
		judges map[string]user.User
	)
	err := s.atomically(ctx, func(exec ...core.DBExecutor) error {
		var err error
		if proj, err = s.projRepo.GetProject(ctx, projectID, exec...); err != nil {
			return err
		}
		if judges, err = s.loadJudges(ctx, desired, exec...); err != nil {
			return err
		}

		res.Added = core.StringSetDiff(desired, proj.AssignedJudges)
		res.Removed = core.StringSetDiff(proj.AssignedJudges, desired)
		res.Errors = nil

		if err = s.projRepo.SetAssignedJudges(ctx, projectID, desired, exec...); err != nil {
			return errors.Wrap(err, "setting assigned judges")
		}

		// union into every desired judge, not only the added ones, to repair earlier partial syncs
		for _, id := range desired {
			if err := s.usrRepo.AddAssignedProject(ctx, id, projectID, exec...); err != nil {
				res.Errors = append(res.Errors, JudgeError{JudgeID: id, Op: opAdd, Error: err.Error()})
			}
		}

		stale, err := s.staleHolders(ctx, projectID, desired, res.Removed, exec...)
		if err != nil {
			return err
		}
		for _, id := range stale {
			if err := s.usrRepo.RemoveAssignedProject(ctx, id, projectID, exec...); err != nil && !core.IsNotFound(err) {
				res.Errors = append(res.Errors, JudgeError{JudgeID: id, Op: opRemove, Error: err.Error()})
			}
		}

		if len(res.Errors) > 0 {
			return &SyncError{Result: res, RolledBack: s.db != nil}
		}
		return nil
	})
	if err != nil {
		if IsPartialSyncFailure(err) && s.logger != nil {
			s.logger.Error(err.Error(), err, map[string]interface{}{"sync": res})
		}
		return res, err
	}

	s.notifyAdded(proj, judges, res.Added)
	return res, nil
}

// loadJudges fetches the desired judges and rejects unknown ids and non-judge users.
func (s *Synchronizer) loadJudges(ctx context.Context, ids []string, exec ...core.DBExecutor) (map[string]user.User, error) {
	judges := make(map[string]user.User, len(ids))
	if len(ids) == 0 {
		return judges, nil
	}
	users, err := s.usrRepo.QueryUsersByID(ctx, ids, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying judges")
	}
	for _, u := range users {
		judges[u.ID] = u
	}

	var flds []core.FieldError
	for _, id := range ids {
		u, ok := judges[id]
		switch {
		case !ok:
			flds = append(flds, core.FieldError{Field: "judges", Error: fmt.Sprintf("unknown judge %q", id)})
		case !u.IsJudge():
			flds = append(flds, core.FieldError{Field: "judges", Error: fmt.Sprintf("user %q is not a judge", u.Username)})
		}
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(errors.New("invalid judges"), flds...)
	}
	return judges, nil
}

// staleHolders lists the users that may still reference projectID without being in desired.
func (s *Synchronizer) staleHolders(ctx context.Context, projectID string, desired, removed []string, exec ...core.DBExecutor) ([]string, error) {
	holders, err := s.usrRepo.QueryUsersByAssignedProject(ctx, projectID, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying project holders")
	}
	ids := make([]string, 0, len(holders)+len(removed))
	for _, u := range holders {
		ids = append(ids, u.ID)
	}
	ids = append(ids, removed...)
	return core.StringSetDiff(core.UniqueStrings(ids), desired), nil
}

const assignedTemplate = `Hello {{.Judge}},

You have been assigned to evaluate the project "{{.Project}}" ({{.Course}}).
`

func (s *Synchronizer) notifyAdded(proj project.Project, judges map[string]user.User, added []string) {
	if s.mailSvc == nil {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(added))
	for _, id := range added {
		j, ok := judges[id]
		if !ok || j.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: j.Name, Address: j.Email}},
			Subject:      "New project to evaluate",
			TextTemplate: assignedTemplate,
			TemplateData: map[string]string{"Judge": j.Name, "Project": proj.Name, "Course": proj.Course},
		})
	}
	if len(msgs) > 0 {
		s.mailSvc.SendMessages(msgs...)
	}
}

// DetachJudge removes judgeID from every project referencing it, and clears the judge's own list.
// It must run before the judge is deleted.
func (s *Synchronizer) DetachJudge(ctx context.Context, judgeID string) error {
	return s.atomically(ctx, func(exec ...core.DBExecutor) error {
		usr, err := s.usrRepo.GetUser(ctx, user.GetFilter{ID: judgeID}, exec...)
		if err != nil {
			return err
		}
		projects, err := s.projRepo.QueryProjects(ctx, &project.QueryFilter{Judge: judgeID}, exec...)
		if err != nil {
			return errors.Wrap(err, "querying judge projects")
		}
		ids := make([]string, 0, len(projects)+len(usr.AssignedProjects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		ids = core.UniqueStrings(append(ids, usr.AssignedProjects...))

		for _, pid := range ids {
			if err := s.projRepo.RemoveAssignedJudge(ctx, pid, judgeID, exec...); err != nil && !core.IsNotFound(err) {
				return errors.Wrapf(err, "removing judge from project %s", pid)
			}
			if err := s.usrRepo.RemoveAssignedProject(ctx, judgeID, pid, exec...); err != nil {
				return errors.Wrapf(err, "removing project %s from judge", pid)
			}
		}
		return nil
	})
}

// DetachProject removes projectID from every judge referencing it, and clears the project's own list.
// It must run before the project is deleted.
func (s *Synchronizer) DetachProject(ctx context.Context, projectID string) error {
	return s.atomically(ctx, func(exec ...core.DBExecutor) error {
		proj, err := s.projRepo.GetProject(ctx, projectID, exec...)
		if err != nil {
			return err
		}
		ids, err := s.staleHolders(ctx, projectID, nil, proj.AssignedJudges, exec...)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.usrRepo.RemoveAssignedProject(ctx, id, projectID, exec...); err != nil && !core.IsNotFound(err) {
				return errors.Wrapf(err, "removing project from judge %s", id)
			}
		}
		return errors.Wrap(s.projRepo.SetAssignedJudges(ctx, projectID, []string{}, exec...), "clearing assigned judges")
	})
}

// ReconcileReport summarizes a Reconcile run.
type ReconcileReport struct {
	Projects      int          `json:"projects"`
	Changed       []SyncResult `json:"changed"`
	DroppedJudges []string     `json:"dropped_judges"` // dangling ids removed from project lists
	Orphans       []string     `json:"orphans"`        // "judge:project" references to missing projects
}

// Reconcile converges every stored assignment: dangling judge ids are dropped from projects,
// each project is re-synced, and judge references to missing projects are removed.
func (s *Synchronizer) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var rep ReconcileReport

	projects, err := s.projRepo.QueryProjects(ctx, nil)
	if err != nil {
		return rep, errors.Wrap(err, "querying projects")
	}
	rep.Projects = len(projects)

	judges, err := s.usrRepo.QueryUsers(ctx, &user.QueryFilter{Roles: []string{user.RoleJudge}}, nil)
	if err != nil {
		return rep, errors.Wrap(err, "querying judges")
	}
	judgeByID := make(map[string]user.User, len(judges))
	for _, j := range judges {
		judgeByID[j.ID] = j
	}

	projectIDs := make(map[string]bool, len(projects))
	for _, p := range projects {
		projectIDs[p.ID] = true

		valid := make([]string, 0, len(p.AssignedJudges))
		for _, id := range p.AssignedJudges {
			if _, ok := judgeByID[id]; ok {
				valid = append(valid, id)
			} else {
				rep.DroppedJudges = append(rep.DroppedJudges, id)
			}
		}
		res, err := s.Sync(ctx, p.ID, valid)
		if err != nil {
			return rep, errors.Wrapf(err, "syncing project %s", p.ID)
		}
		if len(res.Removed) > 0 {
			rep.Changed = append(rep.Changed, res)
		}
	}

	for _, j := range judges {
		for _, pid := range j.AssignedProjects {
			if projectIDs[pid] {
				continue
			}
			if err := s.usrRepo.RemoveAssignedProject(ctx, j.ID, pid); err != nil {
				return rep, errors.Wrapf(err, "removing orphan project %s from judge %s", pid, j.ID)
			}
			rep.Orphans = append(rep.Orphans, j.ID+":"+pid)
		}
	}
	return rep, nil
}
