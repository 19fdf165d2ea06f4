package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/helpdesk-service/internal/domain"
)

func TestDeriveSLADefaultsWithoutCategory(t *testing.T) {
	f := newFixture(t)

	priority, hours, err := f.rules.DeriveSLA(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, priority)
	assert.Equal(t, defaultResolutionHours, hours)
}

func TestDeriveSLAUnknownCategory(t *testing.T) {
	f := newFixture(t)
	missing := int64(404)

	_, _, err := f.rules.DeriveSLA(context.Background(), &missing, nil)
	require.Error(t, err)
}

func TestDeriveSLAHighPriorityCap(t *testing.T) {
	f := newFixture(t)
	category := f.addCategory(t, "urgent", domain.TicketPriorityHigh, 100, nil)

	priority, hours, err := f.rules.DeriveSLA(context.Background(), &category.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, priority)
	assert.Equal(t, domain.HighPriorityMaxHours, hours)
}

func TestResponsibleRoleForUnconfiguredCategory(t *testing.T) {
	f := newFixture(t)
	category := f.addCategory(t, "orphan", domain.TicketPriorityLow, 24, nil)

	roleID, err := f.rules.ResponsibleRoleFor(context.Background(), category.ID)
	require.NoError(t, err)
	assert.Nil(t, roleID)
}
