package main

import (
	"golang.org/x/time/rate"

	"github.com/walidhousni/glavito-sub011/internal/channel"
	"github.com/walidhousni/glavito-sub011/internal/transport/mail"
	"github.com/walidhousni/glavito-sub011/internal/transport/meta"
	"github.com/walidhousni/glavito-sub011/pkg/config"
	"github.com/walidhousni/glavito-sub011/pkg/logx"
)

// newDispatcher registers every channel. WhatsApp and Instagram without
// credentials still validate recipients but fail transiently, so their rows
// go out once the credentials arrive and the rows are requeued.
func newDispatcher(cfg config.SchedulerConfig) *channel.Dispatcher {
	lim := func() *rate.Limiter {
		if cfg.ChannelRate <= 0 {
			return nil
		}
		return rate.NewLimiter(rate.Limit(cfg.ChannelRate), max(1, int(cfg.ChannelRate)))
	}

	wa := &channel.WhatsAppHandler{PhoneNumberID: cfg.WhatsAppPhoneID, DefaultRegion: cfg.DefaultRegion}
	ig := &channel.InstagramHandler{AccountID: cfg.InstagramAccountID}
	if cfg.MetaAccessToken != "" && cfg.WhatsAppPhoneID != "" {
		wa.Sender = meta.NewWhatsAppClient(cfg.MetaBaseURL, cfg.MetaAccessToken)
	} else {
		logx.L().Warnw("channel_not_configured", "channel", wa.Channel(), "hint", "set META_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID")
	}
	if cfg.MetaAccessToken != "" && cfg.InstagramAccountID != "" {
		ig.Sender = meta.NewInstagramClient(cfg.MetaBaseURL, cfg.MetaAccessToken)
	} else {
		logx.L().Warnw("channel_not_configured", "channel", ig.Channel(), "hint", "set META_ACCESS_TOKEN and INSTAGRAM_ACCOUNT_ID")
	}

	d := channel.NewDispatcher(
		channel.Throttle(&channel.EmailHandler{
			Mailer:          mail.New(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName),
			TrackingBaseURL: cfg.TrackingBaseURL,
			ClickSecret:     cfg.TrackingSecret,
		}, lim()),
		channel.Throttle(wa, lim()),
		channel.Throttle(ig, lim()),
	)
	logx.L().Infow("dispatcher_ready", "channels", d.Channels())
	return d
}
