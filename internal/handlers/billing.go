package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/models"
	"gorm.io/gorm"
)

type linkCustomerRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	BillingEmail   string    `json:"billing_email" binding:"required,email"`
}

// LinkBillingCustomer links an Organization to a payment customer
// @Summary      Link a Billing Customer
// @Description  Ensures the organization has a customer record at the
// payment processor and stores the link
// @Id           LinkBillingCustomer
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        Link  body     handlers.linkCustomerRequest  true  "Link"
// @Success      200  {object}  billing.Customer
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/billing/customers/link [post]
func (api *API) LinkBillingCustomer(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "LinkBillingCustomer")
	defer span.End()
	if !api.FlagCheck(c, "billing") {
		return
	}

	var request linkCustomerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	org, err := api.organizations.Get(ctx, request.OrganizationID)
	if err != nil {
		api.sendError(c, err)
		return
	}

	customerID, err := api.processor.EnsureCustomer(ctx, org, request.BillingEmail)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}

	if org.StripeCustomerID == nil || *org.StripeCustomerID != customerID {
		res := api.db.WithContext(ctx).Model(&models.Organization{}).
			Where("id = ?", org.ID).
			Update("stripe_customer_id", customerID)
		if res.Error != nil {
			api.SendInternalServerError(c, res.Error)
			return
		}
	}

	customer, err := api.processor.GetCustomer(ctx, customerID)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// GetBillingCustomer fetches the payment customer linked to an Organization
// @Summary      Get a Billing Customer
// @Id           GetBillingCustomer
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Organization ID"
// @Success      200  {object}  billing.Customer
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/billing/customers/{id} [get]
func (api *API) GetBillingCustomer(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetBillingCustomer")
	defer span.End()
	if !api.FlagCheck(c, "billing") {
		return
	}
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	org, err := api.organizations.Get(ctx, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	if org.StripeCustomerID == nil || *org.StripeCustomerID == "" {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("billing customer"))
		return
	}

	customer, err := api.processor.GetCustomer(ctx, *org.StripeCustomerID)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// BillingWebhook ingests payment processor webhook events
// @Summary      Billing Webhook
// @Description  Applies subscription status changes pushed by the payment
// processor to the linked organization
// @Id           BillingWebhook
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      400  {object}  models.BaseError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/billing/webhook [post]
func (api *API) BillingWebhook(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "BillingWebhook")
	defer span.End()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	event, err := api.processor.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewApiError(err))
		return
	}
	if event == nil {
		c.Status(http.StatusOK)
		return
	}

	err = api.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Organization{}).
			Where("stripe_customer_id = ?", event.CustomerID).
			Update("subscription_status", event.Status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			api.logger.Warnw("webhook for unlinked customer", "customer_id", event.CustomerID)
		}
		return nil
	})
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
