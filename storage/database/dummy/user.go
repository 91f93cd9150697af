package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		usr := *u
		usr.AssignedProjects = copyStrings(u.AssignedProjects)
		users = append(users, usr)
	}
	sortUsers(users)
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if usr.Username == username && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email && !isExcluded(usr, excludedUsers, exclUsrsLen) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	usr.AssignedProjects = core.UniqueStrings(usr.AssignedProjects)
	stored := usr
	repo.db.table[usr.ID] = &stored
	usr.AssignedProjects = copyStrings(stored.AssignedProjects)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query()
	if filter == nil || filter.IsEmpty() {
		orderUsers(users, ordering)
		return users, nil
	}

	filtered := make([]user.User, 0, len(users))
	search := strings.ToLower(filter.Search)
	for _, u := range users {
		// users with search keyword matching any Name, Username or Email ?
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.Name), search) {
			continue
		}
		// users with any of the specified roles
		if len(filter.Roles) > 0 && !core.ContainsString(filter.Roles, u.Role) {
			continue
		}
		filtered = append(filtered, u)
	}
	orderUsers(filtered, ordering)
	return filtered, nil
}

func orderUsers(users []user.User, ordering []core.DBOrdering) {
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		var key func(u user.User) string
		switch ord.Field {
		case "name":
			key = func(u user.User) string { return u.Name }
		case "username":
			key = func(u user.User) string { return u.Username }
		case "email":
			key = func(u user.User) string { return u.Email }
		case "role":
			key = func(u user.User) string { return u.Role }
		default:
			continue
		}
		sort.SliceStable(users, func(i, j int) bool {
			if ord.Ascending {
				return key(users[i]) < key(users[j])
			}
			return key(users[i]) > key(users[j])
		})
	}
}

func (repo *userRepository) QueryUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, u := range repo.query() {
		if core.ContainsString(ids, u.ID) {
			users = append(users, u)
		}
	}
	return users, nil
}

func (repo *userRepository) QueryUsersByAssignedProject(_ context.Context, projectID string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, u := range repo.query() {
		if u.IsAssignedTo(projectID) {
			users = append(users, u)
		}
	}
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			u := *usr
			u.AssignedProjects = copyStrings(usr.AssignedProjects)
			return u, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.query() {
		switch {
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.UsernameOrEmail != "":
			if usr.Username == filter.UsernameOrEmail || (usr.Email != "" && usr.Email == filter.UsernameOrEmail) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	origUsr.Name = usr.Name
	origUsr.Username = usr.Username
	origUsr.Email = usr.Email
	origUsr.Role = usr.Role
	origUsr.UpdatedAt = usr.UpdatedAt
	origUsr.LastLogin = usr.LastLogin

	u := *origUsr
	u.AssignedProjects = copyStrings(origUsr.AssignedProjects)
	return u, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *userRepository) AddAssignedProject(_ context.Context, userID, projectID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[userID]
	if !ok {
		return user.ErrNotFound
	}
	if !core.ContainsString(usr.AssignedProjects, projectID) {
		usr.AssignedProjects = append(copyStrings(usr.AssignedProjects), projectID)
	}
	return nil
}

func (repo *userRepository) RemoveAssignedProject(_ context.Context, userID, projectID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[userID]
	if !ok {
		return user.ErrNotFound
	}
	usr.AssignedProjects = core.StringSetDiff(usr.AssignedProjects, []string{projectID})
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}
