// Package teams implements workspace-scoped teams and their memberships.
// A team's identifier is unique within its workspace; the creator becomes
// the team's first admin in the same transaction that creates the team.
package teams
