package workflow

import "studio-orders/internal/domain/orders"

func init() {
	register(orders.KindVoice,
		Rule{
			From: orders.StatusPendingPayment, Action: ActionConfirmPayment, Roles: adminOrSys,
			To: orders.StatusPaid,
		},
		Rule{
			From: orders.StatusPaid, Action: ActionStartProduction, Roles: admin,
			To:     orders.StatusInProduction,
			Effect: EffectStartProduction,
		},
		Rule{
			From: orders.StatusInProduction, Action: ActionDeliverVersion, Roles: admin,
			To:         orders.StatusDelivered,
			Guard:      all(noteRequired, singleFile),
			Effect:     EffectAppendRevision,
			Notify:     &Notice{Template: "version_delivered", Audience: AudienceClient},
			Serialized: true,
		},
		Rule{
			From: orders.StatusDelivered, Action: ActionSelectVersion, Roles: client,
			To:     orders.StatusDelivered,
			Guard:  versionNamed,
			Effect: EffectSelectVersion,
		},
		Rule{
			From: orders.StatusDelivered, Action: ActionApproveVersion, Roles: client,
			To:     orders.StatusAwaitingFinal,
			Guard:  hasLatest,
			Effect: EffectConfirmVersion,
			Notify: &Notice{Template: "version_approved", Audience: AudienceAdmin},
		},
		Rule{
			From: orders.StatusDelivered, Action: ActionRequestChanges, Roles: client,
			To:     orders.StatusInProduction,
			Guard:  all(withinBudget, hasLatest, changeRequested),
			Effect: EffectRequestChanges,
			Notify: &Notice{Template: "revision_requested", Audience: AudienceAdmin},
		},
	)
	register(orders.KindVoice, finalStage("final_ready")...)
}
