// Package auth はトークン認証とロールベースの認可（Auth Gate）を提供する。
//
// Bearerトークンを検証し、クレームに含まれるIDでユーザーストアを毎回引き直して
// Principalを解決する。クレームの内容は認可判断に使わず、発行後の無効化や
// 権限変更をリクエスト時点で反映する。ゲート自身は共有可変状態を持たない。
package auth
