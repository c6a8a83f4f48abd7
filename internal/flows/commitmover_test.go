package flows_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forgeflowhq/forgeflow/internal/flows"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

var _ = Describe("CommitMover", func() {
	const (
		projectID    = int64(1)
		originColumn = int64(100)
		targetColumn = int64(200)
	)

	var (
		ctx   context.Context
		gw    *fakeGateway
		mover *flows.CommitMover
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = newFakeGateway()
		gw.projects["acme/Sprint Board"] = projectID
		gw.columns[projectID] = []gateway.Column{
			{ID: originColumn, Name: "To do"},
			{ID: targetColumn, Name: "Done"},
		}
		gw.addCard(9, originColumn, "acme/app", 7)

		mover = flows.NewCommitMover("acme", "Sprint Board", originColumn, targetColumn)
		Expect(mover.Start(ctx, gw)).To(Succeed())
	})

	It("fails to start for an unknown project", func() {
		other := flows.NewCommitMover("acme", "No Such Board", originColumn, targetColumn)
		Expect(other.Start(ctx, gw)).To(MatchError(gateway.ErrNotFound))
	})

	It("moves the card when a distinct commit references the issue", func() {
		evt := pushEvent("acme/app", commitSpec{Message: "fix #7", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		Expect(gw.moves).To(Equal([]move{{CardID: 9, ColumnID: targetColumn}}))
	})

	It("updates its index after the move", func() {
		evt := pushEvent("acme/app", commitSpec{Message: "fix #7", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		// The card is no longer in the origin column: a second push must
		// not move it again.
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())
		Expect(gw.moves).To(HaveLen(1))
	})

	It("ignores non-distinct commits", func() {
		evt := pushEvent("acme/app", commitSpec{Message: "fix #7", Distinct: false})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		Expect(gw.moves).To(BeEmpty())
	})

	It("only honours the first issue reference of a commit", func() {
		gw.addCard(10, originColumn, "acme/app", 8)
		Expect(mover.Start(ctx, gw)).To(Succeed())

		evt := pushEvent("acme/app", commitSpec{Message: "fixes #8 and refs #7", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		Expect(gw.moves).To(Equal([]move{{CardID: 10, ColumnID: targetColumn}}))
	})

	It("ignores commits without an issue reference", func() {
		evt := pushEvent("acme/app", commitSpec{Message: "refactor parser", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		Expect(gw.moves).To(BeEmpty())
	})

	It("ignores issues without a known card", func() {
		evt := pushEvent("acme/app", commitSpec{Message: "fix #999", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		Expect(gw.moves).To(BeEmpty())
	})

	It("ignores cards outside the origin column", func() {
		gw.addCard(11, targetColumn, "acme/app", 12)
		Expect(mover.Start(ctx, gw)).To(Succeed())

		evt := pushEvent("acme/app", commitSpec{Message: "fix #12", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		Expect(gw.moves).To(BeEmpty())
	})

	It("ignores pushes from other repositories", func() {
		evt := pushEvent("acme/other", commitSpec{Message: "fix #7", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(Succeed())

		Expect(gw.moves).To(BeEmpty())
	})

	It("surfaces a failed move", func() {
		gw.fail["MoveCard"] = errBoom

		evt := pushEvent("acme/app", commitSpec{Message: "fix #7", Distinct: true})
		Expect(mover.Hook(ctx, evt, gw)).To(MatchError(errBoom))
	})

	Describe("card index maintenance", func() {
		It("indexes cards created after start", func() {
			gw.addCard(21, originColumn, "acme/app", 8)
			Expect(mover.Hook(ctx, cardEvent("created", 21, originColumn, projectID), gw)).To(Succeed())

			evt := pushEvent("acme/app", commitSpec{Message: "fix #8", Distinct: true})
			Expect(mover.Hook(ctx, evt, gw)).To(Succeed())
			Expect(gw.moves).To(Equal([]move{{CardID: 21, ColumnID: targetColumn}}))
		})

		It("forgets deleted cards", func() {
			gw.addCard(21, originColumn, "acme/app", 8)
			Expect(mover.Hook(ctx, cardEvent("created", 21, originColumn, projectID), gw)).To(Succeed())
			Expect(mover.Hook(ctx, cardEvent("deleted", 21, originColumn, projectID), gw)).To(Succeed())

			evt := pushEvent("acme/app", commitSpec{Message: "fix #8", Distinct: true})
			Expect(mover.Hook(ctx, evt, gw)).To(Succeed())
			Expect(gw.moves).To(BeEmpty())
		})

		It("refetches converted cards", func() {
			gw.addCard(22, originColumn, "acme/app", 13)
			Expect(mover.Hook(ctx, cardEvent("converted", 22, originColumn, projectID), gw)).To(Succeed())

			evt := pushEvent("acme/app", commitSpec{Message: "fix #13", Distinct: true})
			Expect(mover.Hook(ctx, evt, gw)).To(Succeed())
			Expect(gw.moves).To(Equal([]move{{CardID: 22, ColumnID: targetColumn}}))
		})

		It("ignores card events of other projects", func() {
			gw.addCard(23, originColumn, "acme/app", 14)
			Expect(mover.Hook(ctx, cardEvent("created", 23, originColumn, 999), gw)).To(Succeed())

			evt := pushEvent("acme/app", commitSpec{Message: "fix #14", Distinct: true})
			Expect(mover.Hook(ctx, evt, gw)).To(Succeed())
			Expect(gw.moves).To(BeEmpty())
		})

		It("tolerates a card vanishing before the refetch", func() {
			Expect(mover.Hook(ctx, cardEvent("created", 404, originColumn, projectID), gw)).To(Succeed())
		})
	})
})
