package lianjia

import (
	"errors"
	"strings"
	"testing"

	"lianjia-rentals/models"
)

const listPageFixture = `<!DOCTYPE html>
<html><body>
<div class="content__list">
  <div class="content__list--item">
    <a class="content__list--item--aside" title="整租·阳光花园 2室1厅 南" href="/zufang/SH100.html"><img></a>
    <div class="content__list--item--main">
      <p class="content__list--item--des">
        <span class="room__left">精选</span>/<a href="/zufang/pudong/">浦东</a>-<a href="/zufang/zhangjiang/">张江</a>-<a title="阳光花园">阳光花园</a>
        <i>/</i>
        75㎡
        <i>/</i>南        <i>/</i>
        两室一厅
        <span class="hide"><i>/</i>
          低楼层 6层
        </span>
      </p>
      <p class="content__list--item--bottom oneline">
        <i class="content__item__tag--decoration">精装</i>
        <i class="content__item__tag--is_subway_house">近地铁</i>
      </p>
      <p class="content__list--item--brand oneline"><span class="brand">链家 </span></p>
      <span class="content__list--item-price"><em>5500</em> 元/月</span>
    </div>
  </div>
  <div class="content__list--item">
    <a class="content__list--item--aside" title="  独栋·魔方公寓 张江店 开间 朝南  " href="https://sh.lianjia.com/apartment/777.html"></a>
    <p class="content__list--item--des">25.00-32.00㎡<i>/</i>开间<i>/</i>1室0厅1卫</p>
    <p class="content__list--item--bottom oneline">
      <i class="content__item__tag--deposit_1_pay_1">月付</i>
      <i class="content__item__tag--first_rent">首次出租</i>
    </p>
    <span class="brand">魔方公寓</span>
    <span class="content__list--item-price"><em>2800-3500</em> 元/月</span>
  </div>
  <div class="content__list--item">
    <a class="content__list--item--aside" title="整租·没有价格" href="/zufang/SH200.html"></a>
    <p class="content__list--item--des">浦东-张江-某小区/50㎡/南/一室/低楼层 3层</p>
    <p class="content__list--item--bottom oneline"></p>
    <span class="brand">链家</span>
  </div>
  <div class="content__list--item">
    <a class="content__list--item--aside" title="合租·结构不对" href="/zufang/SH300.html"></a>
    <p class="content__list--item--des">浦东/20㎡</p>
    <p class="content__list--item--bottom oneline"></p>
    <span class="brand">链家</span>
    <span class="content__list--item-price">1800元/月</span>
  </div>
  <div class="content__list--item">
    <a class="content__list--item--aside" title="整租·没有标签栏" href="/zufang/SH400.html"></a>
    <p class="content__list--item--des">浦东-张江-某小区/50㎡/南/一室/低楼层 3层</p>
    <span class="brand">链家</span>
    <span class="content__list--item-price">4000元/月</span>
  </div>
</div>
</body></html>`

func TestExtractListings(t *testing.T) {
	raws, skipped, err := ExtractListings(strings.NewReader(listPageFixture), "https://sh.lianjia.com")
	if err != nil {
		t.Fatalf("ExtractListings: %v", err)
	}
	if len(raws) != 3 {
		t.Fatalf("got %d listings, want 3", len(raws))
	}
	// one card without a price, one without the tag bar
	if len(skipped) != 2 {
		t.Fatalf("got %d skipped, want 2: %v", len(skipped), skipped)
	}
	for _, err := range skipped {
		if !errors.Is(err, ErrMalformedListing) {
			t.Errorf("skip reason should be ErrMalformedListing, got %v", err)
		}
	}

	first := raws[0]
	if first.HouseInfo != "精选/浦东-张江-阳光花园/75㎡/南/两室一厅/低楼层 6层" {
		t.Errorf("house info: got %q", first.HouseInfo)
	}
	if first.Link != "https://sh.lianjia.com/zufang/SH100.html" {
		t.Errorf("link: got %q", first.Link)
	}
	if first.Brand != "链家" {
		t.Errorf("brand: got %q", first.Brand)
	}
	if first.PriceDisplay != "5500元/月" {
		t.Errorf("price: got %q", first.PriceDisplay)
	}
	if first.Tags[models.TagDecoration] != "精装" || first.Tags[models.TagTransportation] != "近地铁" {
		t.Errorf("tags: got %v", first.Tags)
	}
	if _, ok := first.Tags[models.TagPayType]; ok {
		t.Error("pay type tag should be absent")
	}

	second := raws[1]
	if second.Title != "独栋·魔方公寓 张江店 开间 朝南" {
		t.Errorf("title should be trimmed, got %q", second.Title)
	}
	if second.Link != "https://sh.lianjia.com/apartment/777.html" {
		t.Errorf("absolute href should be kept, got %q", second.Link)
	}
	if second.HouseInfo != "25.00-32.00㎡/开间/1室0厅1卫" {
		t.Errorf("house info: got %q", second.HouseInfo)
	}
}

func TestParsePage(t *testing.T) {
	records, skipped, err := ParsePage(strings.NewReader(listPageFixture), "https://sh.lianjia.com")
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// missing price, missing tag bar, malformed house info line
	if len(skipped) != 3 {
		t.Errorf("got %d skipped, want 3: %v", len(skipped), skipped)
	}

	whole := records[0]
	if deref(whole.Location) != "浦东-张江" || deref(whole.Floor) != "低楼层6层" {
		t.Errorf("whole rental parsed as location=%q floor=%q", deref(whole.Location), deref(whole.Floor))
	}

	detached := records[1]
	if detached.Title != "独栋·魔方公寓 张江店 开间 朝南" {
		t.Errorf("stored title not trimmed: %q", detached.Title)
	}
	if deref(detached.LeaseType) != "独栋" || deref(detached.Orientation) != "南" {
		t.Errorf("detached parsed as lease=%q orientation=%q", deref(detached.LeaseType), deref(detached.Orientation))
	}
	if deref(detached.PayType) != "月付" || deref(detached.FirstRent) != "首次出租" {
		t.Errorf("detached tags: pay=%q first=%q", deref(detached.PayType), deref(detached.FirstRent))
	}
	if deref(detached.Price) != "2800-3500元/月" {
		t.Errorf("detached price: got %q", deref(detached.Price))
	}
}

func TestParsePageWithoutListings(t *testing.T) {
	records, skipped, err := ParsePage(strings.NewReader("<html><body><p>验证码</p></body></html>"), "https://sh.lianjia.com")
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if len(records) != 0 || len(skipped) != 0 {
		t.Errorf("expected nothing, got %d records and %d skipped", len(records), len(skipped))
	}
}
