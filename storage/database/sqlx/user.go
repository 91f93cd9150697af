package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/user"
)

const userColumns = "id, name, username, email, role, password_hash, created_at, updated_at, last_login"

var userOrderFields = map[string]bool{
	"name": true, "username": true, "email": true, "role": true,
	"created_at": true, "updated_at": true, "last_login": true,
}

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

type assignmentRow struct {
	ProjectID string `db:"project_id"`
	JudgeID   string `db:"judge_id"`
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{repository: newRepository(db)}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow, projects []string) user.User {
	if projects == nil {
		projects = []string{}
	}
	usr := user.User{
		ID:               row.ID,
		Name:             row.Name,
		Username:         row.Username,
		Email:            row.Email,
		Role:             row.Role,
		PasswordHash:     row.PasswordHash,
		AssignedProjects: projects,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	return usr
}

// load turns rows into users, with their assigned projects ordered like the project listing.
func (repo userRepository) load(ctx context.Context, exec core.DBExecutor, rows []userRow) ([]user.User, error) {
	users := make([]user.User, 0, len(rows))
	if len(rows) == 0 {
		return users, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var links []assignmentRow
	err := repo.selectAll(ctx, exec, &links,
		`SELECT pj.project_id, pj.judge_id FROM project_judges pj
		JOIN projects p ON p.id = pj.project_id
		WHERE pj.judge_id IN (?) ORDER BY p.created_at, p.id`, ids)
	if err != nil {
		return nil, wrapErr(err, "querying assigned projects")
	}
	projects := make(map[string][]string, len(rows))
	for _, l := range links {
		projects[l.JudgeID] = append(projects[l.JudgeID], l.ProjectID)
	}

	for _, r := range rows {
		users = append(users, repo.fromRow(r, projects[r.ID]))
	}
	return users, nil
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	var conds conditions
	if email != "" {
		conds.add("username = ? OR email = ?", username, email)
	} else {
		conds.add("username = ?", username)
	}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		conds.add("id NOT IN (?)", ids)
	}

	var rows []userRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, "SELECT "+userColumns+" FROM users"+conds.String(), conds.args...); err != nil {
		return wrapErr(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		row.ID, row.Name, row.Username, row.Email, row.Role, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin)
	if err != nil {
		return user.User{}, wrapErr(err, "inserting user")
	}
	return repo.fromRow(row, nil), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var conds conditions
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			conds.add("LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?", val, val, val)
		}
		if len(filter.Roles) > 0 {
			conds.add("role IN (?)", filter.Roles)
		}
	}

	orderList := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		if userOrderFields[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	orderList = append(orderList, "created_at ASC", "id ASC")

	exe := repo.getExec(exec)
	var rows []userRow
	q := "SELECT " + userColumns + " FROM users" + conds.String() + " ORDER BY " + strings.Join(orderList, ", ")
	if err := repo.selectAll(ctx, exe, &rows, q, conds.args...); err != nil {
		return nil, wrapErr(err, "querying users")
	}
	return repo.load(ctx, exe, rows)
}

func (repo userRepository) QueryUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	exe := repo.getExec(exec)
	var rows []userRow
	q := "SELECT " + userColumns + " FROM users WHERE id IN (?) ORDER BY created_at, id"
	if err := repo.selectAll(ctx, exe, &rows, q, ids); err != nil {
		return nil, wrapErr(err, "querying users by id")
	}
	return repo.load(ctx, exe, rows)
}

func (repo userRepository) QueryUsersByAssignedProject(ctx context.Context, projectID string, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)
	var rows []userRow
	q := "SELECT " + userColumns + " FROM users WHERE id IN (SELECT judge_id FROM project_judges WHERE project_id = ?) ORDER BY created_at, id"
	if err := repo.selectAll(ctx, exe, &rows, q, projectID); err != nil {
		return nil, wrapErr(err, "querying users by assigned project")
	}
	return repo.load(ctx, exe, rows)
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var conds conditions
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		conds.add("id = ?", filter.ID)
	case filter.Username != "":
		conds.add("username = ?", filter.Username)
	case filter.UsernameOrEmail != "":
		conds.add("username = ? OR (email <> '' AND email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	exe := repo.getExec(exec)
	var rows []userRow
	if err := repo.selectAll(ctx, exe, &rows, "SELECT "+userColumns+" FROM users"+conds.String()+" LIMIT 1", conds.args...); err != nil {
		return user.User{}, wrapErr(err, "finding user")
	}
	if len(rows) == 0 {
		return user.User{}, user.ErrNotFound
	}
	users, err := repo.load(ctx, exe, rows)
	if err != nil {
		return user.User{}, err
	}
	return users[0], nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	exe := repo.getExec(exec)
	n, err := repo.exec(ctx, exe,
		`UPDATE users SET name = ?, username = ?, email = ?, role = ?, password_hash = ?, updated_at = ?, last_login = ?
		WHERE id = ?`,
		row.Name, row.Username, row.Email, row.Role, row.PasswordHash, row.UpdatedAt, row.LastLogin, row.ID)
	if err != nil {
		return user.User{}, wrapErr(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exe)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM users WHERE id IN (?)", ids)
	return wrapErr(err, "deleting users")
}

func (repo userRepository) AddAssignedProject(ctx context.Context, userID, projectID string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	ok, err := repo.exists(ctx, exe, "SELECT COUNT(*) FROM users WHERE id = ?", userID)
	if err != nil {
		return wrapErr(err, "checking user")
	}
	if !ok {
		return user.ErrNotFound
	}
	_, err = repo.exec(ctx, exe,
		`INSERT INTO project_judges (project_id, judge_id, position)
		SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM project_judges WHERE project_id = ?
		ON CONFLICT (project_id, judge_id) DO NOTHING`,
		projectID, userID, projectID)
	return wrapErr(err, "adding assigned project")
}

func (repo userRepository) RemoveAssignedProject(ctx context.Context, userID, projectID string, exec ...core.DBExecutor) error {
	_, err := repo.exec(ctx, repo.getExec(exec),
		"DELETE FROM project_judges WHERE project_id = ? AND judge_id = ?", projectID, userID)
	return wrapErr(err, "removing assigned project")
}
