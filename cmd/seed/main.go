package main

import (
	"context"

	"go-reporting/internal/config"
	"go-reporting/internal/database"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/permission"
	"go-reporting/internal/features/scheduler"
	"go-reporting/internal/features/share"
	"go-reporting/internal/features/template"
	"go-reporting/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// systemTemplates are the built-in report bodies shipped with a fresh
// install. They are marked IsSystem so the API refuses to delete them.
var systemTemplates = []template.ReportTemplate{
	{
		Name:     "Summary Report",
		Category: "summary",
		Body: "Report: {{config.name}}\n" +
			"Generated: {{summary.generated_at}}\n" +
			"Records in scope: {{summary.count}} of {{summary.total}}\n",
		Variables: []template.TemplateVariable{
			{Name: "config", Type: "object", Required: true},
			{Name: "summary", Type: "object", Required: true},
		},
		IsSystem: true,
	},
	{
		Name:     "Performance Overview",
		Category: "performance",
		Body: "<html><body>" +
			"<h1>{{config.name}}</h1>" +
			"<p>{{config.description}}</p>" +
			"<p>Template {{template.name}} v{{template.version}}</p>" +
			"<p>{{summary.count}} records analysed at {{summary.generated_at}}</p>" +
			"</body></html>",
		Variables: []template.TemplateVariable{
			{Name: "config", Type: "object", Required: true},
			{Name: "template", Type: "object", Required: true},
			{Name: "summary", Type: "object", Required: true},
		},
		IsSystem: true,
	},
	{
		Name:     "Security Findings",
		Category: "security",
		Body: "Security report for {{config.name}}\n" +
			"Window closed at {{summary.generated_at}}\n" +
			"Total findings: {{summary.count}}\n",
		Variables: []template.TemplateVariable{
			{Name: "config", Type: "object", Required: true},
			{Name: "summary", Type: "object", Required: true},
		},
		IsSystem: true,
	},
}

// Seed installs system templates, a bootstrap workspace owner and all
// indexes, then shuts the app down.
func Seed(
	lc fx.Lifecycle,
	templateRepo template.TemplateRepository,
	memberRepo permission.MemberRepository,
	occurrenceRepo scheduler.OccurrenceRepository,
	shareRepo share.ShareRepository,
	auditRepo audit.AuditRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()
				ctx := context.Background()

				logger.Info("Seeding system templates")
				existing, err := templateRepo.List(ctx, "")
				if err != nil {
					logger.Error("list templates failed", zap.Error(err))
					return
				}
				byName := map[string]bool{}
				for _, t := range existing {
					byName[t.Name] = true
				}
				for i := range systemTemplates {
					t := systemTemplates[i]
					if byName[t.Name] {
						logger.Info("template already present", zap.String("name", t.Name))
						continue
					}
					if err := templateRepo.Create(ctx, &t); err != nil {
						logger.Error("create template failed", zap.String("name", t.Name), zap.Error(err))
						continue
					}
					logger.Info("created template", zap.String("name", t.Name))
				}

				owner := &permission.WorkspaceMember{
					UserID:      "dev-admin-id",
					WorkspaceID: "dev-workspace",
					Role:        permission.RoleOwner,
					AddedBy:     "seed",
				}
				if err := memberRepo.Upsert(ctx, owner); err != nil {
					logger.Error("seed workspace owner failed", zap.Error(err))
				}

				for name, ensure := range map[string]func(context.Context) error{
					"occurrences": occurrenceRepo.EnsureIndexes,
					"shares":      shareRepo.EnsureIndexes,
					"access logs": auditRepo.EnsureIndexes,
					"members":     memberRepo.EnsureIndexes,
				} {
					if err := ensure(ctx); err != nil {
						logger.Error("ensure indexes failed", zap.String("collection", name), zap.Error(err))
					}
				}

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,

			template.NewTemplateRepository,
			permission.NewMemberRepository,
			scheduler.NewOccurrenceRepository,
			share.NewShareRepository,
			audit.NewAuditRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
