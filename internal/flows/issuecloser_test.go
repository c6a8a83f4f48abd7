package flows_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forgeflowhq/forgeflow/internal/flows"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
)

var _ = Describe("IssueCloser", func() {
	const (
		projectID  = int64(1)
		doneColumn = int64(200)
	)

	var (
		ctx    context.Context
		gw     *fakeGateway
		closer *flows.IssueCloser
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = newFakeGateway()
		gw.projects["acme/Sprint Board"] = projectID
		gw.addCard(9, doneColumn, "acme/app", 7)
		gw.addIssue("acme/app", gateway.Issue{Number: 7, Title: "Login broken", State: "open"})

		closer = flows.NewIssueCloser("acme", "Sprint Board", doneColumn)
		Expect(closer.Start(ctx, gw)).To(Succeed())
	})

	It("closes the issue of a card moved into the done column", func() {
		Expect(closer.Hook(ctx, cardEvent("moved", 9, doneColumn, projectID), gw)).To(Succeed())

		Expect(gw.closedIssues).To(Equal([]string{"acme/app#7"}))
		Expect(gw.issues["acme/app"][7].State).To(Equal("closed"))
	})

	It("ignores moves into other columns", func() {
		Expect(closer.Hook(ctx, cardEvent("moved", 9, int64(100), projectID), gw)).To(Succeed())

		Expect(gw.closedIssues).To(BeEmpty())
	})

	It("ignores non-move card actions", func() {
		Expect(closer.Hook(ctx, cardEvent("created", 9, doneColumn, projectID), gw)).To(Succeed())

		Expect(gw.closedIssues).To(BeEmpty())
	})

	It("ignores cards of other projects", func() {
		Expect(closer.Hook(ctx, cardEvent("moved", 9, doneColumn, 999), gw)).To(Succeed())

		Expect(gw.closedIssues).To(BeEmpty())
	})

	It("ignores note cards", func() {
		gw.addNoteCard(30, doneColumn)

		Expect(closer.Hook(ctx, cardEvent("moved", 30, doneColumn, projectID), gw)).To(Succeed())
		Expect(gw.closedIssues).To(BeEmpty())
	})

	It("ignores cards deleted before the lookup", func() {
		Expect(closer.Hook(ctx, cardEvent("moved", 404, doneColumn, projectID), gw)).To(Succeed())

		Expect(gw.closedIssues).To(BeEmpty())
	})

	It("surfaces a missing issue", func() {
		gw.addCard(31, doneColumn, "acme/app", 99)

		Expect(closer.Hook(ctx, cardEvent("moved", 31, doneColumn, projectID), gw)).To(MatchError(gateway.ErrNotFound))
	})

	It("fails to start for an unknown project", func() {
		other := flows.NewIssueCloser("acme", "No Such Board", doneColumn)
		Expect(other.Start(ctx, gw)).To(MatchError(gateway.ErrNotFound))
	})
})
