package router

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"

	"github.com/dtroode/pgpmail-server/internal/api/grpc/handler"
	"github.com/dtroode/pgpmail-server/internal/api/grpc/middleware"
	"github.com/dtroode/pgpmail-server/internal/api/grpc/proto"
	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/metrics"
	"github.com/dtroode/pgpmail-server/internal/model"
)

// publicMethods are reachable without a bearer token and are rate limited
// per peer.
var publicMethods = map[string]bool{
	proto.Accounts_Register_FullMethodName: true,
	proto.Accounts_Login_FullMethodName:    true,
}

// Router wires handlers and interceptors into a gRPC server.
type Router struct {
	accounts       handler.AccountService
	mail           handler.MailService
	authenticator  middleware.Authenticator
	contextManager model.ContextManager
	limiter        *middleware.KeyedLimiter
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

// New creates new gRPC Router instance. limiter and m may be nil.
func New(
	accounts handler.AccountService,
	mail handler.MailService,
	authenticator middleware.Authenticator,
	contextManager model.ContextManager,
	limiter *middleware.KeyedLimiter,
	m *metrics.Metrics,
	logger *logger.Logger,
) *Router {
	return &Router{
		accounts:       accounts,
		mail:           mail,
		authenticator:  authenticator,
		contextManager: contextManager,
		limiter:        limiter,
		metrics:        m,
		logger:         logger,
	}
}

func isPublic(_ context.Context, c interceptors.CallMeta) bool {
	return publicMethods[c.FullMethod()]
}

func requiresAuth(ctx context.Context, c interceptors.CallMeta) bool {
	return !isPublic(ctx, c)
}

// Register builds the gRPC server with logging, throttling and
// authentication interceptors and registers both services on it.
func (r *Router) Register(opts ...grpc.ServerOption) *grpc.Server {
	logging := middleware.NewLogging(r.logger, r.metrics)
	rateLimit := middleware.NewRateLimit(r.limiter, r.metrics, r.logger)
	authenticate := middleware.NewAuthenticate(r.authenticator, r.contextManager, r.logger)

	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(rateLimit.HandleGRPC, selector.MatchFunc(isPublic)),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
		grpc.ChainStreamInterceptor(
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
	)

	s := grpc.NewServer(opts...)
	r.registerAccountRoutes(s)
	r.registerMailRoutes(s)

	return s
}

func (r *Router) registerAccountRoutes(server *grpc.Server) {
	accountsHandler := handler.NewAccounts(r.accounts, r.contextManager, r.logger)
	proto.RegisterAccountsServer(server, accountsHandler)
}

func (r *Router) registerMailRoutes(server *grpc.Server) {
	mailHandler := handler.NewMail(r.mail, r.contextManager, r.logger)
	proto.RegisterMailServer(server, mailHandler)
}
