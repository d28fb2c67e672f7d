package workflow

import "studio-orders/internal/domain/orders"

var (
	admin      = []Role{RoleAdmin}
	client     = []Role{RoleClient}
	adminOrSys = []Role{RoleAdmin, RoleSystem}
)

func init() {
	register(orders.KindMusic,
		Rule{
			From: orders.StatusPendingPayment, Action: ActionConfirmPayment, Roles: adminOrSys,
			To: orders.StatusPaid,
		},
		Rule{
			From: orders.StatusPaid, Action: ActionStartProduction, Roles: admin,
			To:     orders.StatusInProduction,
			Guard:  deliveryDatePresent,
			Effect: EffectStartProduction,
			Notify: &Notice{Template: "production_started", Audience: AudienceClient},
		},
		Rule{
			From: orders.StatusInProduction, Action: ActionUploadDemos, Roles: admin,
			To:         orders.StatusDemoReady,
			Guard:      all(directionOpen, hasFiles),
			Effect:     EffectAppendDemos,
			Notify:     &Notice{Template: "demos_ready", Audience: AudienceClient},
			Serialized: true,
		},
		Rule{
			From: orders.StatusDemoReady, Action: ActionUploadDemos, Roles: admin,
			To:         orders.StatusDemoReady,
			Guard:      hasFiles,
			Effect:     EffectAppendDemos,
			Serialized: true,
		},
		Rule{
			From: orders.StatusDemoReady, Action: ActionSelectVersion, Roles: client,
			To:     orders.StatusDemoReady,
			Guard:  versionNamed,
			Effect: EffectSelectVersion,
		},
		Rule{
			From: orders.StatusDemoReady, Action: ActionConfirmDirection, Roles: client,
			To:     orders.StatusInProduction,
			Guard:  hasSelection,
			Effect: EffectConfirmDirection,
			Notify: &Notice{Template: "direction_confirmed", Audience: AudienceAdmin},
		},
		Rule{
			From: orders.StatusInProduction, Action: ActionUploadRevision, Roles: admin,
			To:         orders.StatusVersionReady,
			Guard:      all(directionLocked, singleFile),
			Effect:     EffectAppendRevision,
			Notify:     &Notice{Template: "revision_ready", Audience: AudienceClient},
			Serialized: true,
		},
		Rule{
			From: orders.StatusVersionReady, Action: ActionSelectVersion, Roles: client,
			To:     orders.StatusVersionReady,
			Guard:  versionNamed,
			Effect: EffectSelectVersion,
		},
		Rule{
			From: orders.StatusVersionReady, Action: ActionConfirmVersion, Roles: client,
			To:     orders.StatusAwaitingFinal,
			Guard:  hasLatest,
			Effect: EffectConfirmVersion,
			Notify: &Notice{Template: "version_confirmed", Audience: AudienceAdmin},
		},
		Rule{
			From: orders.StatusVersionReady, Action: ActionRequestChanges, Roles: client,
			To:     orders.StatusInProduction,
			Guard:  all(withinBudget, hasLatest, changeRequested),
			Effect: EffectRequestChanges,
			Notify: &Notice{Template: "changes_requested", Audience: AudienceAdmin},
		},
	)
	register(orders.KindMusic, finalStage("final_ready")...)
}

// finalStage is shared by both kinds: the client may still switch the
// confirmed version while the admin assembles deliverables.
func finalStage(finalTemplate string) []Rule {
	return []Rule{
		{
			From: orders.StatusAwaitingFinal, Action: ActionSelectVersion, Roles: client,
			To:     orders.StatusAwaitingFinal,
			Guard:  versionNamed,
			Effect: EffectSelectVersion,
		},
		{
			From: orders.StatusAwaitingFinal, Action: ActionAddDeliverable, Roles: admin,
			To:         orders.StatusAwaitingFinal,
			Guard:      hasFiles,
			Effect:     EffectAddDeliverable,
			Serialized: true,
		},
		{
			From: orders.StatusAwaitingFinal, Action: ActionRemoveDeliverable, Roles: admin,
			To:         orders.StatusAwaitingFinal,
			Guard:      deliverableNamed,
			Effect:     EffectRemoveDeliverable,
			Serialized: true,
		},
		{
			From: orders.StatusAwaitingFinal, Action: ActionComplete, Roles: admin,
			To:     orders.StatusCompleted,
			Guard:  canComplete,
			Effect: EffectComplete,
			Notify: &Notice{Template: finalTemplate, Audience: AudienceClient},
		},
	}
}
