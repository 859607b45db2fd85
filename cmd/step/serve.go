package main

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mb0/step/hub"
	"github.com/mb0/step/hub/wshub"
)

var (
	serveAddr string
	servePass string
)

var serveCmd = &cobra.Command{
	Use:   "serve [file.step...]",
	Short: "serve schemas and resolved models to websocket clients",
	Long: `serve starts a websocket hub on /hub with the model service attached.
Exchange file arguments are resolved against the configured schemas and
published under their base name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := loadRepo()
		svc := hub.NewModelService(r)
		for _, arg := range args {
			g, errs := loadModel(r, arg, "")
			for _, e := range errs {
				logrus.Warnf("%s: %v", arg, e)
			}
			if g == nil {
				return errors.Errorf("%s does not load", arg)
			}
			name := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
			svc.SetGraph(name, g)
			logrus.Infof("model %s: %d instances", name, len(g.List))
		}
		h := hub.NewHub()
		subs := svc.Services()
		names := make([]string, 0, len(subs))
		for n := range subs {
			names = append(names, n)
		}
		route := hub.NewMatchFilter(subs.Router(h, func(err error) {
			logrus.Warnf("model service: %v", err)
		}), names...)
		go h.Run(route)
		srv := &wshub.Server{Hub: h}
		if servePass != "" {
			signer := &hub.Bcrypt{}
			token, err := signer.Sign(servePass)
			if err != nil {
				return err
			}
			srv.Gate = wshub.PassGate(signer, token)
		}
		addr := serveAddr
		if addr == "" {
			addr = conf.Addr
		}
		if addr == "" {
			addr = ":8557"
		}
		mux := http.NewServeMux()
		mux.Handle("/hub", srv.Handler())
		logrus.Infof("listening on %s", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default :8557)")
	serveCmd.Flags().StringVarP(&servePass, "pass", "p", "", "require this password from clients")
	rootCmd.AddCommand(serveCmd)
}
