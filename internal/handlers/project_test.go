package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/safeoutput/backoffice/internal/models"
)

func (suite *HandlerTestSuite) createTestProject(org models.Organization, name string) models.Project {
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateProject,
		suite.jsonBody(models.AddProject{Name: name, OrganizationID: org.ID}),
	)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusCreated, res.Code)

	var proj models.Project
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &proj))
	return proj
}

func (suite *HandlerTestSuite) TestCreateProject() {
	org := suite.createTestOrganization("acme")
	proj := suite.createTestProject(org, "widgets")
	suite.Equal(org.ID, proj.OrganizationID)
}

func (suite *HandlerTestSuite) TestCreateProjectOutsideOwnOrganizations() {
	// The caller is not a member of any organization holding this id.
	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateProject,
		suite.jsonBody(models.AddProject{Name: "widgets", OrganizationID: knownInviteeID}),
	)
	suite.Require().NoError(err)
	suite.Equal(http.StatusForbidden, res.Code)
}

func (suite *HandlerTestSuite) TestCreateProjectDuplicateName() {
	org := suite.createTestOrganization("acme")
	suite.createTestProject(org, "widgets")

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateProject,
		suite.jsonBody(models.AddProject{Name: "widgets", OrganizationID: org.ID}),
	)
	suite.Require().NoError(err)
	suite.Equal(http.StatusConflict, res.Code)
}

func (suite *HandlerTestSuite) TestProjectInvitationFlow() {
	org := suite.createTestOrganization("acme")
	proj := suite.createTestProject(org, "widgets")

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.CreateInvitation,
		suite.jsonBody(models.AddInvitation{
			Scope:        models.InvitationScopeProject,
			ProjectID:    &proj.ID,
			InviteeEmail: "new@example.com",
		}),
	)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusCreated, res.Code)

	var inv models.Invitation
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &inv))
	suite.Require().NotNil(inv.OrganizationID)
	suite.Equal(org.ID, *inv.OrganizationID)

	_, res, err = suite.ServeRequest(
		http.MethodGet, "/:id/invitations", "/"+proj.ID.String()+"/invitations",
		suite.api.ListProjectInvitations, nil)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	var invitations []models.Invitation
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &invitations))
	suite.Len(invitations, 1)
}

func (suite *HandlerTestSuite) TestLinkBillingCustomer() {
	org := suite.createTestOrganization("acme")

	_, res, err := suite.ServeRequest(
		http.MethodPost, "/", "/",
		suite.api.LinkBillingCustomer,
		suite.jsonBody(map[string]string{
			"organization_id": org.ID.String(),
			"billing_email":   "billing@acme.example.com",
		}),
	)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	var customer map[string]string
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &customer))
	suite.Equal("billing@acme.example.com", customer["email"])

	// The link is persisted; fetching it back works.
	_, res, err = suite.ServeRequest(
		http.MethodGet, "/:id", "/"+org.ID.String(),
		suite.api.GetBillingCustomer, nil)
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, res.Code)
}

func (suite *HandlerTestSuite) TestListFeatureFlags() {
	_, res, err := suite.ServeRequest(
		http.MethodGet, "/", "/", suite.api.ListFeatureFlags, nil)
	suite.Require().NoError(err)
	suite.Require().Equal(http.StatusOK, res.Code)

	var flags map[string]bool
	suite.Require().NoError(json.Unmarshal(res.Body.Bytes(), &flags))
	suite.True(flags["billing"])
}
