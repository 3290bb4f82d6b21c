package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/auth"
	"github.com/planarhq/planar/pkg/config"
	"github.com/planarhq/planar/pkg/observability"
	"github.com/planarhq/planar/pkg/rbac"
	"github.com/planarhq/planar/pkg/teams"
	"github.com/planarhq/planar/pkg/users"
	"github.com/planarhq/planar/pkg/workspaces"
)

// In-memory fakes backing the full router in handler tests. They mirror
// the stores' error contracts: nil for absent rows, typed errors for
// conflicts and misses.

type fakeUserStore struct {
	byID map[string]*users.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: make(map[string]*users.User)}
}

func (f *fakeUserStore) Create(_ context.Context, fullName, email, passwordHash string) (*users.User, error) {
	email = users.NormalizeEmail(email)
	for _, u := range f.byID {
		if u.Email == email {
			return nil, apperr.Conflict("email already registered")
		}
	}
	user := &users.User{
		ID: uuid.NewString(), FullName: fullName, Email: email, PasswordHash: passwordHash,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*users.User, error) {
	return f.byID[id], nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*users.User, error) {
	email = users.NormalizeEmail(email)
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, _ := f.GetByEmail(ctx, email)
	return u != nil, nil
}

func (f *fakeUserStore) Update(_ context.Context, id string, req *users.UpdateUserRequest) (*users.User, error) {
	user := f.byID[id]
	if user == nil {
		return nil, nil
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = req.ProfilePicture
	}
	user.UpdatedAt = time.Now()
	return user, nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	if f.byID[id] == nil {
		return apperr.NotFound("user not found")
	}
	delete(f.byID, id)
	return nil
}

type fakeWorkspaceService struct {
	users       *fakeUserStore
	workspaces  map[string]*workspaces.Workspace
	members     map[string]map[string]*workspaces.Member // workspaceID -> userID
	invitations map[string]*workspaces.Invitation
}

func newFakeWorkspaceService(userStore *fakeUserStore) *fakeWorkspaceService {
	return &fakeWorkspaceService{
		users:       userStore,
		workspaces:  make(map[string]*workspaces.Workspace),
		members:     make(map[string]map[string]*workspaces.Member),
		invitations: make(map[string]*workspaces.Invitation),
	}
}

func (f *fakeWorkspaceService) CreateWorkspace(_ context.Context, ownerID, title, description, url string) (*workspaces.Workspace, error) {
	for _, w := range f.workspaces {
		if w.URL == url {
			return nil, apperr.Conflict("workspace url already taken")
		}
	}
	workspace := &workspaces.Workspace{
		ID: uuid.NewString(), Title: title, Description: description, URL: url,
		OwnerID: ownerID, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.workspaces[workspace.ID] = workspace
	f.members[workspace.ID] = map[string]*workspaces.Member{
		ownerID: {
			ID: uuid.NewString(), WorkspaceID: workspace.ID, UserID: ownerID,
			Role: auth.RoleAdmin, CreatedAt: time.Now(),
		},
	}
	return workspace, nil
}

func (f *fakeWorkspaceService) GetWorkspace(_ context.Context, id string) (*workspaces.Workspace, error) {
	return f.workspaces[id], nil
}

func (f *fakeWorkspaceService) GetWorkspaceByURL(_ context.Context, url string) (*workspaces.Workspace, error) {
	for _, w := range f.workspaces {
		if w.URL == url {
			return w, nil
		}
	}
	return nil, nil
}

func (f *fakeWorkspaceService) ListWorkspacesForUser(_ context.Context, userID string) ([]*workspaces.Workspace, error) {
	list := []*workspaces.Workspace{}
	for id, w := range f.workspaces {
		if w.OwnerID == userID {
			list = append(list, w)
			continue
		}
		if _, ok := f.members[id][userID]; ok {
			list = append(list, w)
		}
	}
	return list, nil
}

func (f *fakeWorkspaceService) UpdateWorkspace(_ context.Context, id string, req *workspaces.UpdateWorkspaceRequest) (*workspaces.Workspace, error) {
	workspace := f.workspaces[id]
	if workspace == nil {
		return nil, apperr.NotFound("workspace not found")
	}
	if req.Title != nil {
		workspace.Title = *req.Title
	}
	if req.Description != nil {
		workspace.Description = *req.Description
	}
	if req.URL != nil {
		workspace.URL = *req.URL
	}
	return workspace, nil
}

func (f *fakeWorkspaceService) DeleteWorkspace(_ context.Context, id string) error {
	if f.workspaces[id] == nil {
		return apperr.NotFound("workspace not found")
	}
	delete(f.workspaces, id)
	delete(f.members, id)
	for invID, inv := range f.invitations {
		if inv.WorkspaceID == id {
			delete(f.invitations, invID)
		}
	}
	return nil
}

func (f *fakeWorkspaceService) ListMembers(_ context.Context, workspaceID string) ([]*workspaces.Member, error) {
	list := []*workspaces.Member{}
	for _, m := range f.members[workspaceID] {
		list = append(list, m)
	}
	return list, nil
}

func (f *fakeWorkspaceService) GetMember(_ context.Context, workspaceID, userID string) (*workspaces.Member, error) {
	return f.members[workspaceID][userID], nil
}

func (f *fakeWorkspaceService) AddMember(_ context.Context, workspaceID, userID string, role auth.Role) (*workspaces.Member, error) {
	if f.members[workspaceID] == nil {
		f.members[workspaceID] = make(map[string]*workspaces.Member)
	}
	if f.members[workspaceID][userID] != nil {
		return nil, apperr.Conflict("user is already a member of this workspace")
	}
	member := &workspaces.Member{
		ID: uuid.NewString(), WorkspaceID: workspaceID, UserID: userID,
		Role: role, CreatedAt: time.Now(),
	}
	f.members[workspaceID][userID] = member
	return member, nil
}

func (f *fakeWorkspaceService) UpdateMemberRole(_ context.Context, workspaceID, userID string, role auth.Role) (*workspaces.Member, error) {
	member := f.members[workspaceID][userID]
	if member == nil {
		return nil, apperr.NotFound("member not found")
	}
	member.Role = role
	return member, nil
}

func (f *fakeWorkspaceService) RemoveMember(_ context.Context, workspaceID, userID string) error {
	if f.members[workspaceID][userID] == nil {
		return apperr.NotFound("member not found")
	}
	delete(f.members[workspaceID], userID)
	return nil
}

func (f *fakeWorkspaceService) CreateInvitation(_ context.Context, workspaceID string, sender *auth.Identity, email string, role auth.Role) (*workspaces.Invitation, error) {
	email = users.NormalizeEmail(email)
	if email == users.NormalizeEmail(sender.Email) {
		return nil, apperr.BadRequest("you cannot invite yourself")
	}
	for _, m := range f.members[workspaceID] {
		if u := f.users.byID[m.UserID]; u != nil && u.Email == email {
			return nil, apperr.Conflict("user is already a member of this workspace")
		}
	}
	for id, inv := range f.invitations {
		if inv.WorkspaceID == workspaceID && inv.Email == email {
			if inv.Expired(time.Now()) {
				delete(f.invitations, id)
				continue
			}
			return nil, apperr.Conflict("an invitation for this email is already pending")
		}
	}
	invitation := &workspaces.Invitation{
		ID: uuid.NewString(), WorkspaceID: workspaceID, Email: email, Role: role,
		InvitedBy: sender.UserID, ExpiresAt: time.Now().Add(workspaces.DefaultInvitationTTL),
		CreatedAt: time.Now(),
	}
	f.invitations[invitation.ID] = invitation
	return invitation, nil
}

func (f *fakeWorkspaceService) ListInvitations(_ context.Context, workspaceID string) ([]*workspaces.Invitation, error) {
	list := []*workspaces.Invitation{}
	for _, inv := range f.invitations {
		if inv.WorkspaceID == workspaceID && !inv.Expired(time.Now()) {
			list = append(list, inv)
		}
	}
	return list, nil
}

func (f *fakeWorkspaceService) AcceptInvitation(ctx context.Context, workspaceID, invitationID string, actor *auth.Identity) (*workspaces.Member, error) {
	invitation := f.invitations[invitationID]
	if invitation == nil || invitation.WorkspaceID != workspaceID {
		return nil, apperr.NotFound("invitation not found")
	}
	if invitation.Expired(time.Now()) {
		return nil, apperr.BadRequest("invitation has expired",
			apperr.Issue{Field: "expiresAt", Message: "Invitation expired", Code: "expired"})
	}
	if invitation.Email != users.NormalizeEmail(actor.Email) {
		return nil, apperr.Unauthorized("this invitation was sent to a different email address")
	}
	member, err := f.AddMember(ctx, invitation.WorkspaceID, actor.UserID, invitation.Role)
	if err != nil {
		return nil, err
	}
	delete(f.invitations, invitationID)
	return member, nil
}

func (f *fakeWorkspaceService) DeclineInvitation(_ context.Context, workspaceID, invitationID string, actor *auth.Identity) error {
	invitation := f.invitations[invitationID]
	if invitation == nil || invitation.WorkspaceID != workspaceID {
		return apperr.NotFound("invitation not found")
	}
	if invitation.Expired(time.Now()) {
		return apperr.BadRequest("invitation has expired",
			apperr.Issue{Field: "expiresAt", Message: "Invitation expired", Code: "expired"})
	}
	if invitation.Email != users.NormalizeEmail(actor.Email) {
		return apperr.Unauthorized("this invitation was sent to a different email address")
	}
	delete(f.invitations, invitationID)
	return nil
}

func (f *fakeWorkspaceService) RemoveInvitation(_ context.Context, workspaceID, invitationID string) error {
	invitation := f.invitations[invitationID]
	if invitation == nil || invitation.WorkspaceID != workspaceID {
		return apperr.NotFound("invitation not found")
	}
	delete(f.invitations, invitationID)
	return nil
}

func (f *fakeWorkspaceService) DeleteInvitationsExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, inv := range f.invitations {
		if inv.ExpiresAt.Before(cutoff) {
			delete(f.invitations, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeTeamService struct {
	teams   map[string]*teams.Team
	members map[string]map[string]*teams.Member // teamID -> userID
}

func newFakeTeamService() *fakeTeamService {
	return &fakeTeamService{
		teams:   make(map[string]*teams.Team),
		members: make(map[string]map[string]*teams.Member),
	}
}

func (f *fakeTeamService) CreateTeam(_ context.Context, workspaceID, creatorID, name, identifier, description string) (*teams.Team, error) {
	for _, t := range f.teams {
		if t.WorkspaceID == workspaceID && t.Identifier == identifier {
			return nil, apperr.Conflict("team identifier already used in this workspace")
		}
	}
	team := &teams.Team{
		ID: uuid.NewString(), WorkspaceID: workspaceID, Name: name,
		Identifier: identifier, Description: description,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.teams[team.ID] = team
	f.members[team.ID] = map[string]*teams.Member{
		creatorID: {
			ID: uuid.NewString(), TeamID: team.ID, UserID: creatorID,
			Role: auth.RoleAdmin, CreatedAt: time.Now(),
		},
	}
	return team, nil
}

func (f *fakeTeamService) GetTeam(_ context.Context, id string) (*teams.Team, error) {
	return f.teams[id], nil
}

func (f *fakeTeamService) ListTeams(_ context.Context, workspaceID string) ([]*teams.Team, error) {
	list := []*teams.Team{}
	for _, t := range f.teams {
		if t.WorkspaceID == workspaceID {
			list = append(list, t)
		}
	}
	return list, nil
}

func (f *fakeTeamService) UpdateTeam(_ context.Context, id string, req *teams.UpdateTeamRequest) (*teams.Team, error) {
	team := f.teams[id]
	if team == nil {
		return nil, apperr.NotFound("team not found")
	}
	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Identifier != nil {
		team.Identifier = *req.Identifier
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	return team, nil
}

func (f *fakeTeamService) DeleteTeam(_ context.Context, id string) error {
	if f.teams[id] == nil {
		return apperr.NotFound("team not found")
	}
	delete(f.teams, id)
	delete(f.members, id)
	return nil
}

func (f *fakeTeamService) ListMembers(_ context.Context, teamID string) ([]*teams.Member, error) {
	list := []*teams.Member{}
	for _, m := range f.members[teamID] {
		list = append(list, m)
	}
	return list, nil
}

func (f *fakeTeamService) GetMember(_ context.Context, teamID, userID string) (*teams.Member, error) {
	return f.members[teamID][userID], nil
}

func (f *fakeTeamService) AddMember(_ context.Context, teamID, userID string, role auth.Role) (*teams.Member, error) {
	if f.members[teamID] == nil {
		f.members[teamID] = make(map[string]*teams.Member)
	}
	if f.members[teamID][userID] != nil {
		return nil, apperr.Conflict("user is already a member of this team")
	}
	member := &teams.Member{
		ID: uuid.NewString(), TeamID: teamID, UserID: userID,
		Role: role, CreatedAt: time.Now(),
	}
	f.members[teamID][userID] = member
	return member, nil
}

func (f *fakeTeamService) UpdateMemberRole(_ context.Context, teamID, userID string, role auth.Role) (*teams.Member, error) {
	member := f.members[teamID][userID]
	if member == nil {
		return nil, apperr.NotFound("team member not found")
	}
	member.Role = role
	return member, nil
}

func (f *fakeTeamService) RemoveMember(_ context.Context, teamID, userID string) error {
	if f.members[teamID][userID] == nil {
		return apperr.NotFound("team member not found")
	}
	delete(f.members[teamID], userID)
	return nil
}

// testEnv is a full API server over in-memory fakes.
type testEnv struct {
	router     http.Handler
	users      *fakeUserStore
	workspaces *fakeWorkspaceService
	teams      *fakeTeamService
	authSvc    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	userStore := newFakeUserStore()
	workspaceService := newFakeWorkspaceService(userStore)
	teamService := newFakeTeamService()

	codec := auth.NewTokenCodec([]byte("test-secret-at-least-32-bytes-long!!"))
	authService := auth.NewService(userStore, auth.NewPasswordHasher(), codec,
		6*time.Hour, 168*time.Hour, logger, nil)

	server := NewServer(config.ServerConfig{AllowedOrigins: []string{"*"}}, Deps{
		AuthService:      authService,
		UserStore:        userStore,
		WorkspaceService: workspaceService,
		TeamService:      teamService,
		Guards:           rbac.NewGuards(workspaceService, teamService),
		Logger:           logger,
	})

	return &testEnv{
		router:     server.Router(),
		users:      userStore,
		workspaces: workspaceService,
		teams:      teamService,
		authSvc:    authService,
	}
}

// do issues a JSON request against the router. token may be empty.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signupAndLogin registers a user and returns their id and access token.
func (e *testEnv) signupAndLogin(t *testing.T, fullName, email, password string) (string, string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/signup", "", SignupRequest{
		FullName: fullName, Email: email, Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	rec = e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.AccessToken)

	return user.ID, session.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest),
		fmt.Sprintf("body: %s", rec.Body.String()))
}
