package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/models"
)

func (suite *HandlerTestSuite) createTestInvitation(org models.Organization, email string) models.Invitation {
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateInvitation,
		suite.jsonBody(models.AddInvitation{
			Scope:          models.InvitationScopeOrganization,
			OrganizationID: &org.ID,
			InviteeEmail:   email,
		}),
	)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusCreated, res.Code)

	var inv models.Invitation
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &inv))
	return inv
}

func (suite *HandlerTestSuite) TestCreateInvitation() {
	org := suite.createTestOrganization("acme")
	inv := suite.createTestInvitation(org, "new@example.com")

	suite.Equal(models.InvitationStatusPending, inv.Status)
	suite.NotEmpty(inv.Token)
	suite.Equal(testUserID, inv.InviterUserID)
	suite.Nil(inv.InviteeUserID)
}

func (suite *HandlerTestSuite) TestCreateInvitationResolvesKnownInvitee() {
	org := suite.createTestOrganization("acme")
	inv := suite.createTestInvitation(org, knownInviteeEmail)

	suite.Require().NotNil(inv.InviteeUserID)
	suite.Equal(knownInviteeID, *inv.InviteeUserID)
}

func (suite *HandlerTestSuite) TestInvitationLifecycleOutsideOwnOrganizations() {
	// An organization the current user is not a member of.
	outsider := uuid.New()
	org, err := suite.api.organizations.Create(context.Background(), outsider, models.AddOrganization{
		Name: "elsewhere",
		Type: models.OrganizationTypeStartup,
	})
	suite.Require().NoError(err)

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateInvitation,
		suite.jsonBody(models.AddInvitation{
			Scope:          models.InvitationScopeOrganization,
			OrganizationID: &org.ID,
			InviteeEmail:   "new@example.com",
		}),
	)
	suite.Require().NoError(err)
	suite.Equal(http.StatusForbidden, res.Code)

	inv, err := suite.api.invitations.Create(context.Background(), outsider, models.AddInvitation{
		Scope:          models.InvitationScopeOrganization,
		OrganizationID: &org.ID,
		InviteeEmail:   "new@example.com",
	})
	suite.Require().NoError(err)

	revoked := models.InvitationStatusRevoked
	_, res, err = suite.ServeRequest(
		http.MethodPatch, "/:id", "/"+inv.ID.String(),
		suite.api.UpdateInvitation,
		suite.jsonBody(models.UpdateInvitation{Status: &revoked}),
	)
	suite.Require().NoError(err)
	suite.Equal(http.StatusForbidden, res.Code)

	_, res, err = suite.ServeRequest(
		http.MethodPost, "/:id/revoke", "/"+inv.ID.String()+"/revoke",
		suite.api.RevokeInvitation, nil)
	suite.Require().NoError(err)
	suite.Equal(http.StatusForbidden, res.Code)
}

func (suite *HandlerTestSuite) TestCreateInvitationDuplicatePending() {
	org := suite.createTestOrganization("acme")
	suite.createTestInvitation(org, "new@example.com")

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateInvitation,
		suite.jsonBody(models.AddInvitation{
			Scope:          models.InvitationScopeOrganization,
			OrganizationID: &org.ID,
			InviteeEmail:   "NEW@example.com",
		}),
	)
	suite.Require().NoError(err)
	suite.Equal(http.StatusConflict, res.Code)
}

func (suite *HandlerTestSuite) TestResolveInvitationToken() {
	org := suite.createTestOrganization("acme")
	inv := suite.createTestInvitation(org, "new@example.com")

	_, res, err := suite.ServeRequest(
		http.MethodGet, "/token/:token", "/token/"+inv.Token,
		suite.api.GetInvitationByToken, nil)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	var got models.Invitation
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &got))
	suite.Equal(inv.ID, got.ID)
}

func (suite *HandlerTestSuite) TestAcceptInvitation() {
	org := suite.createTestOrganization("acme")
	inv := suite.createTestInvitation(org, "new@example.com")

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/:id/accept", "/"+inv.ID.String()+"/accept",
		suite.api.AcceptInvitation, nil)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	var accepted models.Invitation
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &accepted))
	suite.Equal(models.InvitationStatusAccepted, accepted.Status)

	// Accepting a second time is an invalid transition.
	_, res, err = suite.ServeRequest(
		http.MethodPost, "/:id/accept", "/"+inv.ID.String()+"/accept",
		suite.api.AcceptInvitation, nil)
	suite.Require().NoError(err)
	suite.Equal(http.StatusUnprocessableEntity, res.Code)
}

func (suite *HandlerTestSuite) TestRevokeInvitation() {
	org := suite.createTestOrganization("acme")
	inv := suite.createTestInvitation(org, "new@example.com")

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/:id/revoke", "/"+inv.ID.String()+"/revoke",
		suite.api.RevokeInvitation,
		suite.jsonBody(models.RevokeInvitation{Reason: "mistake"}),
	)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	var revoked models.Invitation
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &revoked))
	suite.Equal(models.InvitationStatusRevoked, revoked.Status)
}

func (suite *HandlerTestSuite) TestUpdateInvitationIllegalTransition() {
	org := suite.createTestOrganization("acme")
	inv := suite.createTestInvitation(org, "new@example.com")

	revoked := models.InvitationStatusRevoked
	_, res, err := suite.ServeRequest(
		http.MethodPatch, "/:id", "/"+inv.ID.String(),
		suite.api.UpdateInvitation,
		suite.jsonBody(models.UpdateInvitation{Status: &revoked}),
	)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	accepted := models.InvitationStatusAccepted
	_, res, err = suite.ServeRequest(
		http.MethodPatch, "/:id", "/"+inv.ID.String(),
		suite.api.UpdateInvitation,
		suite.jsonBody(models.UpdateInvitation{Status: &accepted}),
	)
	suite.Require().NoError(err)
	suite.Equal(http.StatusUnprocessableEntity, res.Code)
}

func (suite *HandlerTestSuite) TestDeleteInvitation() {
	org := suite.createTestOrganization("acme")
	inv := suite.createTestInvitation(org, "new@example.com")

	_, res, err := suite.ServeRequest(
		http.MethodDelete, "/:id", "/"+inv.ID.String(),
		suite.api.DeleteInvitation, nil)
	suite.Require().NoError(err)
	suite.Equal(http.StatusNoContent, res.Code)

	_, res, err = suite.ServeRequest(
		http.MethodDelete, "/:id", "/"+inv.ID.String(),
		suite.api.DeleteInvitation, nil)
	suite.Require().NoError(err)
	suite.Equal(http.StatusNotFound, res.Code)
}

func (suite *HandlerTestSuite) TestListAuditLogs() {
	org := suite.createTestOrganization("acme")

	_, res, err := suite.ServeRequest(
		http.MethodGet, "/audit",
		"/audit?entityType=organization&entityId="+org.ID.String(),
		suite.api.ListAuditLogs, nil)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	var entries []models.AuditLog
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &entries))
	suite.Require().NotEmpty(entries)
	suite.Equal(models.EventOrganizationCreated, entries[0].EventType)
}

func (suite *HandlerTestSuite) TestListAuditLogsBadEntityType() {
	_, res, err := suite.ServeRequest(
		http.MethodGet, "/audit", "/audit?entityType=widget&entityId="+testUserID.String(),
		suite.api.ListAuditLogs, nil)
	suite.Require().NoError(err)
	suite.Equal(http.StatusBadRequest, res.Code)
}
