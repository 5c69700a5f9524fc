package tenancy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/models"
)

func (suite *TenancyTestSuite) TestCreateInvitationGeneratesToken() {
	org := suite.createOrganization("acme")

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusPending, inv.Status)
	suite.GreaterOrEqual(len(inv.Token), models.InvitationTokenMinLen)
	suite.Equal(suite.actorID, inv.InviterUserID)

	events := suite.auditEvents("invitation", inv.ID)
	suite.Equal([]string{models.EventInvitationCreated}, events)
}

func (suite *TenancyTestSuite) TestCreateInvitationScopeParentRules() {
	org := suite.createOrganization("acme")
	proj := suite.createProject(org.ID, "widgets")

	var validation ValidationError

	_, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:        models.InvitationScopeOrganization,
		InviteeEmail: "new@example.com",
	})
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("organization_id", validation.Field)

	_, err = suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		ProjectID:      &proj.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("project_id", validation.Field)

	_, err = suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:        models.InvitationScopeProject,
		InviteeEmail: "new@example.com",
	})
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("project_id", validation.Field)
}

func (suite *TenancyTestSuite) TestCreateProjectInvitationDerivesOrganization() {
	org := suite.createOrganization("acme")
	proj := suite.createProject(org.ID, "widgets")

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:        models.InvitationScopeProject,
		ProjectID:    &proj.ID,
		InviteeEmail: "new@example.com",
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(inv.OrganizationID)
	suite.Equal(org.ID, *inv.OrganizationID)

	// A caller-supplied organization that disagrees with the project's
	// parent is rejected.
	wrong := uuid.New()
	_, err = suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeProject,
		ProjectID:      &proj.ID,
		OrganizationID: &wrong,
		InviteeEmail:   "other@example.com",
	})
	var validation ValidationError
	suite.True(errors.As(err, &validation))
}

func (suite *TenancyTestSuite) TestCreateInvitationRejectsMalformedEmail() {
	org := suite.createOrganization("acme")

	_, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "no-at-sign-here",
	})
	var validation ValidationError
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("invitee_email", validation.Field)

	var count int64
	suite.db.Model(&models.Invitation{}).Count(&count)
	suite.Zero(count)
}

func (suite *TenancyTestSuite) TestCreateInvitationTokenLengthBounds() {
	org := suite.createOrganization("acme")
	var validation ValidationError

	_, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
		Token:          "short",
	})
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("token", validation.Field)

	_, err = suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
		Token:          strings.Repeat("x", models.InvitationTokenMaxLen+1),
	})
	suite.Require().True(errors.As(err, &validation))
	suite.Equal("token", validation.Field)
}

func (suite *TenancyTestSuite) TestCreateInvitationDuplicatePendingConflicts() {
	org := suite.createOrganization("acme")

	_, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	// Same parent, same email modulo case.
	_, err = suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "NEW@example.com",
	})
	var conflict ConflictError
	suite.True(errors.As(err, &conflict))
}

func (suite *TenancyTestSuite) TestRevokedInvitationFreesThePendingSlot() {
	org := suite.createOrganization("acme")

	first, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	_, err = suite.invitations.Revoke(context.Background(), suite.actorID, first.ID, models.RevokeInvitation{Reason: "sent too early"})
	suite.Require().NoError(err)

	_, err = suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.NoError(err)
}

func (suite *TenancyTestSuite) TestRedeemInvitationAddsMembership() {
	org := suite.createOrganization("acme")
	userID := uuid.New()

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	redeemed, err := suite.invitations.Redeem(context.Background(), inv.Token, userID)
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusAccepted, redeemed.Status)
	suite.Require().NotNil(redeemed.InviteeUserID)
	suite.Equal(userID, *redeemed.InviteeUserID)

	isMember, err := suite.members.IsOrganizationMember(context.Background(), org.ID, userID)
	suite.Require().NoError(err)
	suite.True(isMember)

	suite.Equal([]string{models.EventInvitationRedeemed, models.EventInvitationCreated},
		suite.auditEvents("invitation", inv.ID))
	suite.Contains(suite.auditEvents("organization", org.ID), models.EventOrganizationMemberAdded)
}

func (suite *TenancyTestSuite) TestRedeemTwiceFails() {
	org := suite.createOrganization("acme")

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	_, err = suite.invitations.Redeem(context.Background(), inv.Token, uuid.New())
	suite.Require().NoError(err)

	_, err = suite.invitations.Redeem(context.Background(), inv.Token, uuid.New())
	var transition InvalidTransitionError
	suite.Require().True(errors.As(err, &transition))
	suite.Equal(models.InvitationStatusAccepted, transition.From)
}

func (suite *TenancyTestSuite) TestRedeemByExistingMemberIsIdempotent() {
	org := suite.createOrganization("acme")
	userID := uuid.New()

	_, err := suite.members.AddOrganizationMember(context.Background(), suite.actorID, org.ID, models.AddOrganizationMember{UserID: userID})
	suite.Require().NoError(err)

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "member@example.com",
	})
	suite.Require().NoError(err)

	redeemed, err := suite.invitations.Redeem(context.Background(), inv.Token, userID)
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusAccepted, redeemed.Status)

	// One member-added event from the explicit add, none from the redeem.
	added := 0
	for _, event := range suite.auditEvents("organization", org.ID) {
		if event == models.EventOrganizationMemberAdded {
			added++
		}
	}
	suite.Equal(1, added)
}

func (suite *TenancyTestSuite) TestRedeemExpiredInvitationExpiresIt() {
	org := suite.createOrganization("acme")
	past := time.Now().Add(-time.Hour)

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "late@example.com",
		ExpiresAt:      &past,
	})
	suite.Require().NoError(err)

	_, err = suite.invitations.Redeem(context.Background(), inv.Token, uuid.New())
	var transition InvalidTransitionError
	suite.Require().True(errors.As(err, &transition))

	got, err := suite.invitations.Get(context.Background(), inv.ID)
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusExpired, got.Status)
	suite.Contains(suite.auditEvents("invitation", inv.ID), models.EventInvitationExpired)
}

func (suite *TenancyTestSuite) TestUpdateInvitationTransitionRules() {
	org := suite.createOrganization("acme")

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	revoked := models.InvitationStatusRevoked
	updated, err := suite.invitations.Update(context.Background(), suite.actorID, inv.ID, models.UpdateInvitation{Status: &revoked})
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusRevoked, updated.Status)

	// Terminal states never move again.
	accepted := models.InvitationStatusAccepted
	_, err = suite.invitations.Update(context.Background(), suite.actorID, inv.ID, models.UpdateInvitation{Status: &accepted})
	var transition InvalidTransitionError
	suite.Require().True(errors.As(err, &transition))
	suite.Equal(models.InvitationStatusRevoked, transition.From)
}

func (suite *TenancyTestSuite) TestUpdateInvitationNonStatusFields() {
	org := suite.createOrganization("acme")

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	role := "admin"
	updated, err := suite.invitations.Update(context.Background(), suite.actorID, inv.ID, models.UpdateInvitation{Role: &role})
	suite.Require().NoError(err)
	suite.Require().NotNil(updated.Role)
	suite.Equal("admin", *updated.Role)
	suite.Equal(models.InvitationStatusPending, updated.Status)
}

func (suite *TenancyTestSuite) TestDeletePendingInvitationIsAudited() {
	org := suite.createOrganization("acme")

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	found, err := suite.invitations.Delete(context.Background(), suite.actorID, inv.ID)
	suite.Require().NoError(err)
	suite.True(found)

	suite.Contains(suite.auditEvents("invitation", inv.ID), models.EventInvitationDeleted)

	found, err = suite.invitations.Delete(context.Background(), suite.actorID, inv.ID)
	suite.Require().NoError(err)
	suite.False(found)
}

func (suite *TenancyTestSuite) TestExpireOverdueSweep() {
	org := suite.createOrganization("acme")
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	overdue, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "overdue@example.com",
		ExpiresAt:      &past,
	})
	suite.Require().NoError(err)

	fresh, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "fresh@example.com",
		ExpiresAt:      &future,
	})
	suite.Require().NoError(err)

	count, err := suite.invitations.ExpireOverdue(context.Background())
	suite.Require().NoError(err)
	suite.Equal(1, count)

	got, err := suite.invitations.Get(context.Background(), overdue.ID)
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusExpired, got.Status)

	// System sweeps record no actor.
	entries, err := suite.recorder.ListByEntity(context.Background(), "invitation", overdue.ID, 0, 0)
	suite.Require().NoError(err)
	suite.Equal(models.EventInvitationExpired, entries[0].EventType)
	suite.Nil(entries[0].ActorID)

	got, err = suite.invitations.Get(context.Background(), fresh.ID)
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusPending, got.Status)
}

func (suite *TenancyTestSuite) TestGetByTokenNotFound() {
	_, err := suite.invitations.GetByToken(context.Background(), "nope-not-a-token")
	var notFound NotFoundError
	suite.True(errors.As(err, &notFound))
}

func (suite *TenancyTestSuite) TestFailedAuditWriteRollsBackTheTransaction() {
	org := suite.createOrganization("acme")
	userID := uuid.New()

	inv, err := suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	// With the audit table out of the way every audit insert fails, and
	// the surrounding transaction has to take the data changes down with
	// it.
	suite.Require().NoError(suite.db.Exec("ALTER TABLE audit_logs RENAME TO audit_logs_hidden").Error)
	defer func() {
		suite.Require().NoError(suite.db.Exec("ALTER TABLE audit_logs_hidden RENAME TO audit_logs").Error)
	}()

	_, err = suite.invitations.Create(context.Background(), suite.actorID, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "other@example.com",
	})
	suite.Require().Error(err)

	var count int64
	suite.db.Model(&models.Invitation{}).Where("invitee_email = ?", "other@example.com").Count(&count)
	suite.Zero(count)

	_, err = suite.invitations.Redeem(context.Background(), inv.Token, userID)
	suite.Require().Error(err)

	got, err := suite.invitations.Get(context.Background(), inv.ID)
	suite.Require().NoError(err)
	suite.Equal(models.InvitationStatusPending, got.Status)

	isMember, err := suite.members.IsOrganizationMember(context.Background(), org.ID, userID)
	suite.Require().NoError(err)
	suite.False(isMember)
}
